package forecast

import (
	"math"

	"FinCast/internal/domain/models"
)

// Evaluate computes RMSE, MAE and R² of predicted against actual.
func Evaluate(actual, predicted []float64) models.FitMetrics {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}
	if n == 0 {
		return models.FitMetrics{}
	}

	var mean float64
	for _, v := range actual[:n] {
		mean += v
	}
	mean /= float64(n)

	var sse, sae, sst float64
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		sse += d * d
		sae += math.Abs(d)
		c := actual[i] - mean
		sst += c * c
	}

	r2 := 0.0
	switch {
	case sst != 0:
		r2 = 1 - sse/sst
	case sse == 0:
		r2 = 1
	}

	return models.FitMetrics{
		RMSE: math.Sqrt(sse / float64(n)),
		MAE:  sae / float64(n),
		R2:   r2,
	}
}
