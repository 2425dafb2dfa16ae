package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
)

// CachePredictionStore keeps one prediction per (symbol, horizon) in a cache.Service.
type CachePredictionStore struct {
	c   cache.Service
	ttl time.Duration
	now func() time.Time
}

var _ domrepo.PredictionStore = (*CachePredictionStore)(nil)

// NewCachePredictionStore stores predictions for ttl; ttl <= 0 keeps them until evicted.
func NewCachePredictionStore(c cache.Service, ttl time.Duration) *CachePredictionStore {
	return &CachePredictionStore{c: c, ttl: ttl, now: time.Now}
}

func predictionKey(symbol string, horizon int) string {
	return cache.GenerateKeyWithParams("prediction", symbol, horizon)
}

func (s *CachePredictionStore) Get(ctx context.Context, symbol string, horizon int) (*models.Prediction, error) {
	var p models.Prediction
	if err := s.c.Get(ctx, predictionKey(symbol, horizon), &p); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return &p, nil
}

// Put overwrites any prediction stored under the same key.
func (s *CachePredictionStore) Put(ctx context.Context, p *models.Prediction) (string, error) {
	now := s.now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := s.c.Set(ctx, predictionKey(p.Symbol, p.Horizon), p, s.ttl); err != nil {
		return "", fmt.Errorf("put prediction: %w", err)
	}
	return p.ID, nil
}
