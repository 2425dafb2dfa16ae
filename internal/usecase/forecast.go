package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	"FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// ForecastConfig carries the request-independent forecast settings.
type ForecastConfig struct {
	DefaultHorizon int
	MaxHorizon     int
	TrainTimeout   time.Duration
	HistoryStart   string
	HistoryEnd     string
	Workers        int
}

// ForecastService answers forecast requests from the prediction cache and
// trains a model on a miss. Concurrent misses for one (symbol, horizon)
// share a single training run.
type ForecastService struct {
	series     drepo.SeriesProvider
	store      drepo.PredictionStore
	forecaster service.Forecaster
	events     drepo.EventPublisher
	metrics    drepo.Metrics
	l          *applogger.Logger
	cfg        ForecastConfig

	group singleflight.Group
	pool  *trainPool
	now   func() time.Time
}

func NewForecastService(
	cfg ForecastConfig,
	series drepo.SeriesProvider,
	store drepo.PredictionStore,
	forecaster service.Forecaster,
	events drepo.EventPublisher,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *ForecastService {
	l = l.With(applogger.String("usecase", "forecast"))
	return &ForecastService{
		series:     series,
		store:      store,
		forecaster: forecaster,
		events:     events,
		metrics:    metrics,
		l:          l,
		cfg:        cfg,
		pool:       newTrainPool(cfg.Workers, l),
		now:        time.Now,
	}
}

// GetForecast validates the request and returns the cached or freshly computed prediction.
// A zero horizon selects the configured default.
func (s *ForecastService) GetForecast(ctx context.Context, symbol string, horizon int) (*models.Prediction, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", models.ErrInvalidSymbol)
	}
	h, err := s.resolveHorizon(horizon)
	if err != nil {
		return nil, err
	}
	return s.FetchOrCompute(ctx, symbol, h)
}

func (s *ForecastService) resolveHorizon(h int) (int, error) {
	if h == 0 {
		return s.cfg.DefaultHorizon, nil
	}
	if h < 1 || (s.cfg.MaxHorizon > 0 && h > s.cfg.MaxHorizon) {
		return 0, fmt.Errorf("%w: %d not in 1..%d", models.ErrInvalidHorizon, h, s.cfg.MaxHorizon)
	}
	return h, nil
}

// FetchOrCompute returns the stored prediction for (symbol, horizon) or trains one.
// Nothing is stored when training fails or times out.
func (s *ForecastService) FetchOrCompute(ctx context.Context, symbol string, horizon int) (*models.Prediction, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidHorizon, horizon)
	}
	if p, err := s.lookup(ctx, symbol, horizon); err != nil || p != nil {
		return p, err
	}

	key := symbol + ":" + strconv.Itoa(horizon)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// shared work must outlive any single caller
		return s.compute(context.WithoutCancel(ctx), symbol, horizon)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			s.metrics.RecordForecast("error")
			return nil, res.Err
		}
		if res.Shared {
			s.metrics.RecordForecast("shared")
		}
		return res.Val.(*models.Prediction), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *ForecastService) lookup(ctx context.Context, symbol string, horizon int) (*models.Prediction, error) {
	p, err := s.store.Get(ctx, symbol, horizon)
	if err != nil {
		s.metrics.RecordError("prediction_store")
		return nil, fmt.Errorf("lookup prediction %s: %w", symbol, err)
	}
	if p != nil {
		s.metrics.RecordForecast("hit")
	}
	return p, nil
}

func (s *ForecastService) compute(ctx context.Context, symbol string, horizon int) (*models.Prediction, error) {
	// a caller that lost the race may arrive after the winner stored its result
	if p, err := s.lookup(ctx, symbol, horizon); err != nil || p != nil {
		return p, err
	}

	from, to, err := util.HistoryRange(s.cfg.HistoryStart, s.cfg.HistoryEnd, s.now())
	if err != nil {
		return nil, err
	}
	raw, err := s.series.Fetch(ctx, symbol, from, to)
	if err != nil {
		s.metrics.RecordError("series")
		return nil, models.NewComputationError(symbol, "fetch history", err)
	}
	series := features.CleanSeries(raw)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w for %s", models.ErrNoHistoricalData, symbol)
	}

	trainCtx, cancel := context.WithTimeout(ctx, s.cfg.TrainTimeout)
	defer cancel()

	var out service.Forecast
	start := time.Now()
	err = s.pool.run(trainCtx, symbol, func(ctx context.Context) error {
		f, err := s.forecaster.Forecast(ctx, models.Closes(series), horizon)
		if err != nil {
			return err
		}
		out = f
		return nil
	})
	took := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.metrics.RecordError("train_timeout")
			s.l.Warn("training timed out",
				applogger.String("symbol", symbol),
				applogger.Int("horizon", horizon),
				applogger.Duration("timeout_ms", s.cfg.TrainTimeout))
			return nil, models.NewComputationError(symbol, "train", models.ErrForecastTimeout)
		}
		s.metrics.RecordError("train")
		return nil, models.NewComputationError(symbol, "train", err)
	}
	s.metrics.RecordTraining(took.Seconds())

	if len(out.Prices) != horizon {
		return nil, models.NewComputationError(symbol, "predict",
			fmt.Errorf("model returned %d prices for horizon %d", len(out.Prices), horizon))
	}

	metrics := out.Metrics
	p := &models.Prediction{
		Symbol:  symbol,
		Horizon: horizon,
		Dates:   util.FutureDates(series[len(series)-1].Date, horizon),
		Prices:  out.Prices,
		Metrics: &metrics,
	}
	id, err := s.store.Put(ctx, p)
	if err != nil {
		s.metrics.RecordError("prediction_store")
		return nil, fmt.Errorf("store prediction %s: %w", symbol, err)
	}
	p.ID = id
	s.metrics.RecordForecast("computed")

	s.l.Info("forecast computed",
		applogger.String("symbol", symbol),
		applogger.Int("horizon", horizon),
		applogger.Int("history", len(series)),
		applogger.Float64("rmse", metrics.RMSE),
		applogger.Duration("train_ms", took))

	s.publish(ctx, p)
	return p, nil
}

// publish emits PredictionCreated; failures are logged and never fail the request.
func (s *ForecastService) publish(ctx context.Context, p *models.Prediction) {
	if s.events == nil {
		return
	}
	evt := models.PredictionCreated{
		EventID:    uuid.NewString(),
		Prediction: p.ID,
		Symbol:     p.Symbol,
		Horizon:    p.Horizon,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.events.PublishPredictionCreated(ctx, evt); err != nil {
		s.metrics.RecordError("publish")
		s.l.Warn("publish prediction event", applogger.String("symbol", p.Symbol), applogger.Error(err))
	}
}

// Wait blocks until training workers abandoned by timeouts have exited.
func (s *ForecastService) Wait() { s.pool.wait() }
