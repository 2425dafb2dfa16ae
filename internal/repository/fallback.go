package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	icache "FinCast/internal/service/cache"
	applogger "FinCast/pkg/logger"
)

// FallbackSeriesProvider asks each provider in order and returns the first
// series with at least minPoints values. When no provider reaches that length
// the longest series seen is returned. Errors are only surfaced when every
// provider failed.
type FallbackSeriesProvider struct {
	providers []domrepo.SeriesProvider
	minPoints int
	l         *applogger.Logger
}

var _ domrepo.SeriesProvider = (*FallbackSeriesProvider)(nil)

func NewFallbackSeriesProvider(l *applogger.Logger, providers ...domrepo.SeriesProvider) *FallbackSeriesProvider {
	return &FallbackSeriesProvider{providers: compact(providers), minPoints: 1, l: l}
}

// WithMinPoints treats series shorter than n as a miss.
func (f *FallbackSeriesProvider) WithMinPoints(n int) *FallbackSeriesProvider {
	if n > 0 {
		f.minPoints = n
	}
	return f
}

func (f *FallbackSeriesProvider) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	var (
		errs    []error
		longest []models.PricePoint
	)
	for i, p := range f.providers {
		series, err := p.Fetch(ctx, symbol, from, to)
		if err != nil {
			f.l.Warn("series provider failed",
				applogger.String("symbol", symbol),
				applogger.Int("provider", i),
				applogger.Error(err))
			errs = append(errs, err)
			continue
		}
		if len(series) >= f.minPoints {
			return series, nil
		}
		if len(series) > 0 {
			f.l.Debug("series too short, trying next provider",
				applogger.String("symbol", symbol),
				applogger.Int("provider", i),
				applogger.Int("points", len(series)))
		}
		if len(series) > len(longest) {
			longest = series
		}
	}
	if longest != nil {
		return longest, nil
	}
	if len(errs) == len(f.providers) && len(errs) > 0 {
		return nil, fmt.Errorf("all series providers failed: %w", errors.Join(errs...))
	}
	return nil, nil
}

// FallbackPriceLookup asks each lookup in order and returns the first positive price.
type FallbackPriceLookup struct {
	lookups []domrepo.PriceLookup
}

var _ domrepo.PriceLookup = (*FallbackPriceLookup)(nil)

func NewFallbackPriceLookup(lookups ...domrepo.PriceLookup) *FallbackPriceLookup {
	return &FallbackPriceLookup{lookups: compact(lookups)}
}

func (f *FallbackPriceLookup) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var errs []error
	for _, l := range f.lookups {
		price, err := l.CurrentPrice(ctx, symbol)
		if err == nil && price > 0 {
			return price, nil
		}
		if err == nil {
			err = fmt.Errorf("non-positive price %v", price)
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, fmt.Errorf("no price source for %s", symbol)
	}
	return 0, fmt.Errorf("price %s: %w", symbol, errors.Join(errs...))
}

// CachedPriceLookup memoizes successful lookups for a short TTL.
type CachedPriceLookup struct {
	next  domrepo.PriceLookup
	cache *icache.TTLCache[float64]
	ttl   time.Duration
}

var _ domrepo.PriceLookup = (*CachedPriceLookup)(nil)

func NewCachedPriceLookup(next domrepo.PriceLookup, c *icache.TTLCache[float64], ttl time.Duration) *CachedPriceLookup {
	return &CachedPriceLookup{next: next, cache: c, ttl: ttl}
}

func (c *CachedPriceLookup) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if c.ttl > 0 {
		if v, ok := c.cache.Get(symbol); ok {
			return v, nil
		}
	}
	price, err := c.next.CurrentPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if c.ttl > 0 {
		c.cache.Set(symbol, price, c.ttl)
	}
	return price, nil
}

// compact drops nil interface entries.
func compact[T comparable](in []T) []T {
	var zero T
	out := make([]T, 0, len(in))
	for _, v := range in {
		if v != zero {
			out = append(out, v)
		}
	}
	return out
}
