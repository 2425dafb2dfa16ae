package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/service"
)

type fakeSeries struct {
	bySymbol map[string][]models.PricePoint
	err      error
}

func (f *fakeSeries) Fetch(_ context.Context, symbol string, _, _ time.Time) ([]models.PricePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bySymbol[symbol], nil
}

func dailySeries(start time.Time, closes ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = models.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

type memStore struct {
	mu   sync.Mutex
	m    map[string]models.Prediction
	puts int
	seq  int
}

func newMemStore() *memStore { return &memStore{m: make(map[string]models.Prediction)} }

func (s *memStore) key(symbol string, h int) string { return fmt.Sprintf("%s:%d", symbol, h) }

func (s *memStore) Get(_ context.Context, symbol string, h int) (*models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[s.key(symbol, h)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memStore) Put(_ context.Context, p *models.Prediction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.puts++
	p.ID = fmt.Sprintf("pred-%d", s.seq)
	s.m[s.key(p.Symbol, p.Horizon)] = *p
	return p.ID, nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// stubForecaster returns horizon prices counting up from the last close.
type stubForecaster struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func (f *stubForecaster) Forecast(ctx context.Context, closes []float64, horizon int) (service.Forecast, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return service.Forecast{}, ctx.Err()
		}
	}
	if f.err != nil {
		return service.Forecast{}, f.err
	}
	if len(closes) <= 1 {
		return service.Forecast{}, fmt.Errorf("%w: %d points", models.ErrInsufficientData, len(closes))
	}
	out := make([]float64, horizon)
	for i := range out {
		out[i] = closes[len(closes)-1] + float64(i+1)
	}
	return service.Forecast{Prices: out, Metrics: models.FitMetrics{RMSE: 0.5}}, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []models.PredictionCreated
	err    error
}

func (p *capturePublisher) PublishPredictionCreated(_ context.Context, evt models.PredictionCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

type fakePortfolio struct {
	portfolios   map[string]models.Portfolio
	assets       map[string][]models.Asset
	transactions map[string][]models.Transaction
}

func (f *fakePortfolio) Portfolio(_ context.Context, id string) (*models.Portfolio, error) {
	p, ok := f.portfolios[id]
	if !ok {
		return nil, models.ErrPortfolioNotFound
	}
	return &p, nil
}

func (f *fakePortfolio) AssetsByPortfolio(_ context.Context, id string) ([]models.Asset, error) {
	return f.assets[id], nil
}

func (f *fakePortfolio) TransactionsByPortfolio(_ context.Context, id string) ([]models.Transaction, error) {
	return f.transactions[id], nil
}

type fakePrices map[string]float64

func (f fakePrices) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	p, ok := f[symbol]
	if !ok {
		return 0, errors.New("no price")
	}
	return p, nil
}
