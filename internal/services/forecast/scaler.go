package forecast

// Scaler is a min-max transform onto [0, 1], fitted once per request.
type Scaler struct {
	Min float64
	Max float64
}

// FitScaler fits over the whole series, including the points later used as targets.
func FitScaler(series []float64) Scaler {
	if len(series) == 0 {
		return Scaler{}
	}
	s := Scaler{Min: series[0], Max: series[0]}
	for _, v := range series[1:] {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	return s
}

// span is never zero so a flat series maps to 0 and back.
func (s Scaler) span() float64 {
	if d := s.Max - s.Min; d != 0 {
		return d
	}
	return 1
}

func (s Scaler) Scale(v float64) float64 {
	return (v - s.Min) / s.span()
}

func (s Scaler) Unscale(v float64) float64 {
	return v*s.span() + s.Min
}

func (s Scaler) ScaleAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Scale(v)
	}
	return out
}

func (s Scaler) UnscaleAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Unscale(v)
	}
	return out
}
