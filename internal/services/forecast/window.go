package forecast

import (
	"errors"
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

var ErrNonFinite = errors.New("non-finite value")

// Windows holds normalized training pairs for one request.
type Windows struct {
	Inputs   [][]float64
	Targets  []float64
	Scaler   Scaler
	Scaled   []float64
	LookBack int
}

// Prepare normalizes series and cuts it into len(series)-lookBack input/target pairs.
func Prepare(series []float64, lookBack int) (*Windows, error) {
	if lookBack < 1 {
		return nil, fmt.Errorf("look back must be positive, got %d", lookBack)
	}
	if len(series) <= lookBack {
		return nil, fmt.Errorf("%w: %d points for look back %d", models.ErrInsufficientData, len(series), lookBack)
	}
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}

	scaler := FitScaler(series)
	scaled := scaler.ScaleAll(series)

	n := len(series) - lookBack
	w := &Windows{
		Inputs:   make([][]float64, n),
		Targets:  make([]float64, n),
		Scaler:   scaler,
		Scaled:   scaled,
		LookBack: lookBack,
	}
	for i := lookBack; i < len(scaled); i++ {
		w.Inputs[i-lookBack] = scaled[i-lookBack : i : i]
		w.Targets[i-lookBack] = scaled[i]
	}
	return w, nil
}

// Last returns the most recent lookBack normalized values, the seed for autoregressive prediction.
func (w *Windows) Last() []float64 {
	out := make([]float64, w.LookBack)
	copy(out, w.Scaled[len(w.Scaled)-w.LookBack:])
	return out
}
