package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	"FinCast/internal/domain/service"
	"FinCast/internal/services/forecast"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig() ForecastConfig {
	return ForecastConfig{
		DefaultHorizon: 3,
		MaxHorizon:     30,
		TrainTimeout:   5 * time.Second,
		HistoryStart:   "2018-01-01",
		HistoryEnd:     "2024-06-01",
		Workers:        2,
	}
}

func newService(t *testing.T, series *fakeSeries, f service.Forecaster, pub *capturePublisher) (*ForecastService, *memStore) {
	t.Helper()
	store := newMemStore()
	var events drepo.EventPublisher
	if pub != nil {
		events = pub
	}
	svc := NewForecastService(testConfig(), series, store, f, events, metrics.Nop{}, applogger.Nop())
	return svc, store
}

func tenToTwenty() *fakeSeries {
	return &fakeSeries{bySymbol: map[string][]models.PricePoint{
		"AAPL": dailySeries(day0, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20),
	}}
}

func TestForecastService_ComputesThenServesFromCache(t *testing.T) {
	f := &stubForecaster{}
	pub := &capturePublisher{}
	svc, store := newService(t, tenToTwenty(), f, pub)

	first, err := svc.GetForecast(context.Background(), " aapl ", 3)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, []string{"2024-01-12", "2024-01-13", "2024-01-14"}, first.Dates)
	assert.Equal(t, []float64{21, 22, 23}, first.Prices)
	require.NotNil(t, first.Metrics)

	second, err := svc.GetForecast(context.Background(), "AAPL", 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, 1, store.puts)

	require.Len(t, pub.events, 1)
	assert.Equal(t, first.ID, pub.events[0].Prediction)
}

func TestForecastService_DefaultAndInvalidHorizon(t *testing.T) {
	svc, _ := newService(t, tenToTwenty(), &stubForecaster{}, nil)

	p, err := svc.GetForecast(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, p.Prices, 3)

	_, err = svc.GetForecast(context.Background(), "AAPL", 31)
	assert.ErrorIs(t, err, models.ErrInvalidHorizon)
	_, err = svc.GetForecast(context.Background(), "AAPL", -1)
	assert.ErrorIs(t, err, models.ErrInvalidHorizon)
	_, err = svc.GetForecast(context.Background(), "  ", 3)
	assert.ErrorIs(t, err, models.ErrInvalidSymbol)
}

func TestForecastService_ConcurrentMissesShareOneTraining(t *testing.T) {
	f := &stubForecaster{started: make(chan struct{}, 8), release: make(chan struct{})}
	svc, store := newService(t, tenToTwenty(), f, nil)

	const callers = 6
	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.FetchOrCompute(context.Background(), "AAPL", 5)
			errs[i] = err
			if p != nil {
				ids[i] = p.ID
			}
		}(i)
	}

	<-f.started
	// let the other callers pile onto the in-flight key
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, 1, store.puts)
}

func TestForecastService_TimeoutStoresNothing(t *testing.T) {
	f := &stubForecaster{release: make(chan struct{})}
	store := newMemStore()
	cfg := testConfig()
	cfg.TrainTimeout = 30 * time.Millisecond
	svc := NewForecastService(cfg, tenToTwenty(), store, f, nil, metrics.Nop{}, applogger.Nop())

	_, err := svc.FetchOrCompute(context.Background(), "AAPL", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrForecastTimeout)
	var ce *models.ComputationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "AAPL", ce.Symbol)

	svc.Wait()
	assert.Equal(t, 0, store.len())
}

func TestForecastService_NoHistoricalData(t *testing.T) {
	f := &stubForecaster{}
	svc, store := newService(t, &fakeSeries{bySymbol: map[string][]models.PricePoint{}}, f, nil)

	_, err := svc.FetchOrCompute(context.Background(), "NOPE", 3)
	assert.ErrorIs(t, err, models.ErrNoHistoricalData)
	assert.EqualValues(t, 0, f.calls.Load())
	assert.Equal(t, 0, store.len())
}

func TestForecastService_TrainingFailureIsComputationError(t *testing.T) {
	f := &stubForecaster{err: errors.New("diverged")}
	svc, store := newService(t, tenToTwenty(), f, nil)

	_, err := svc.FetchOrCompute(context.Background(), "AAPL", 3)
	var ce *models.ComputationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "AAPL", ce.Symbol)
	assert.Equal(t, 0, store.len())
}

func TestForecastService_PublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	svc, store := newService(t, tenToTwenty(), &stubForecaster{}, pub)

	p, err := svc.FetchOrCompute(context.Background(), "AAPL", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 1, store.len())
}

func TestForecastService_WithLSTMEngine(t *testing.T) {
	engine := forecast.NewEngine(forecast.Config{
		LookBack:     5,
		Epochs:       3,
		BatchSize:    2,
		Hidden1:      4,
		Hidden2:      4,
		LearningRate: 0.01,
		Seed:         7,
	}, nil)
	svc, _ := newService(t, tenToTwenty(), engine, nil)

	p, err := svc.FetchOrCompute(context.Background(), "AAPL", 3)
	require.NoError(t, err)
	assert.Len(t, p.Prices, 3)
	assert.Equal(t, []string{"2024-01-12", "2024-01-13", "2024-01-14"}, p.Dates)

	again, err := svc.FetchOrCompute(context.Background(), "AAPL", 3)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}
