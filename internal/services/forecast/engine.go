package forecast

import (
	"context"
	"fmt"
	"time"

	"FinCast/internal/domain/service"
	applogger "FinCast/pkg/logger"
)

// Config holds the request-level training configuration.
type Config struct {
	LookBack     int
	Epochs       int
	BatchSize    int
	Hidden1      int
	Hidden2      int
	LearningRate float64
	Seed         int64
}

// Engine builds, trains and queries a fresh model for every call.
type Engine struct {
	cfg    Config
	logger *applogger.Logger
}

var _ service.Forecaster = (*Engine)(nil)

func NewEngine(cfg Config, logger *applogger.Logger) *Engine {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Forecast windows closes, trains a new model and predicts horizon future closes.
func (e *Engine) Forecast(ctx context.Context, closes []float64, horizon int) (service.Forecast, error) {
	w, err := Prepare(closes, e.cfg.LookBack)
	if err != nil {
		return service.Forecast{}, err
	}

	model, err := Build(e.cfg.LookBack, ModelConfig{
		Hidden1:      e.cfg.Hidden1,
		Hidden2:      e.cfg.Hidden2,
		LearningRate: e.cfg.LearningRate,
		Seed:         e.cfg.Seed,
	})
	if err != nil {
		return service.Forecast{}, err
	}

	start := time.Now()
	history, err := model.Train(ctx, w.Inputs, w.Targets, e.cfg.Epochs, e.cfg.BatchSize)
	if err != nil {
		return service.Forecast{}, fmt.Errorf("train: %w", err)
	}
	e.logger.Debug("model trained",
		applogger.Int("windows", len(w.Inputs)),
		applogger.Int("epochs", len(history)),
		applogger.Float64("final_loss", history[len(history)-1]),
		applogger.Duration("took_ms", time.Since(start)),
	)

	fitted := make([]float64, len(w.Inputs))
	for i, in := range w.Inputs {
		y, err := model.Predict(in)
		if err != nil {
			return service.Forecast{}, fmt.Errorf("evaluate: %w", err)
		}
		fitted[i] = y
	}
	metrics := Evaluate(w.Scaler.UnscaleAll(w.Targets), w.Scaler.UnscaleAll(fitted))

	prices, err := model.PredictHorizon(w.Last(), w.Scaler, horizon)
	if err != nil {
		return service.Forecast{}, fmt.Errorf("predict: %w", err)
	}

	return service.Forecast{Prices: prices, Metrics: metrics}, nil
}
