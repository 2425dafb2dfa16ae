package models

import "time"

// FitMetrics describe how well the trained model reproduces its own training targets, in price units.
type FitMetrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// Prediction is the cached forecast artifact for one (symbol, horizon) pair.
type Prediction struct {
	ID        string      `json:"id"`
	Symbol    string      `json:"symbol"`
	Horizon   int         `json:"horizon"`
	Dates     []string    `json:"dates"`
	Prices    []float64   `json:"prices"`
	Metrics   *FitMetrics `json:"metrics,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// HoldingForecast is one entry of a batch forecast: exactly one of Prediction or Error is set.
type HoldingForecast struct {
	Prediction *Prediction `json:"prediction,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// PredictionCreated is emitted after a new forecast has been computed and stored.
type PredictionCreated struct {
	EventID    string    `json:"event_id"`
	Prediction string    `json:"prediction_id"`
	Symbol     string    `json:"symbol"`
	Horizon    int       `json:"horizon"`
	CreatedAt  time.Time `json:"created_at"`
}

// ForecastJob asks the service to compute (or confirm) a cached forecast.
type ForecastJob struct {
	Symbol  string `json:"symbol" validate:"required,ticker"`
	Horizon int    `json:"horizon" default:"30" validate:"gte=1,lte=365"`
}
