package service

import (
	"context"

	"FinCast/internal/domain/models"
)

// Forecast is the raw output of one train-and-predict run.
type Forecast struct {
	Prices  []float64
	Metrics models.FitMetrics
}

// Forecaster trains a fresh model on closes and predicts horizon future closes.
type Forecaster interface {
	Forecast(ctx context.Context, closes []float64, horizon int) (Forecast, error)
}
