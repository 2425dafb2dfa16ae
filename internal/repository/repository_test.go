package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	icache "FinCast/internal/service/cache"
	"FinCast/pkg/cache"
	applogger "FinCast/pkg/logger"
)

type seriesFunc func(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error)

func (f seriesFunc) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	return f(ctx, symbol, from, to)
}

type priceFunc func(ctx context.Context, symbol string) (float64, error)

func (f priceFunc) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return f(ctx, symbol)
}

func TestCachePredictionStore_MissPutGet(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCachePredictionStore(mc, 0)

	got, err := s.Get(ctx, "AAPL", 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	p := &models.Prediction{Symbol: "AAPL", Horizon: 5, Dates: []string{"2024-01-03"}, Prices: []float64{101}}
	id, err := s.Put(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err = s.Get(ctx, "AAPL", 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, []float64{101}, got.Prices)

	other, err := s.Get(ctx, "AAPL", 6)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestCachePredictionStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCachePredictionStore(mc, time.Hour)

	_, err := s.Put(ctx, &models.Prediction{Symbol: "X", Horizon: 1, Prices: []float64{1}})
	require.NoError(t, err)
	id2, err := s.Put(ctx, &models.Prediction{Symbol: "X", Horizon: 1, Prices: []float64{2}})
	require.NoError(t, err)

	got, err := s.Get(ctx, "X", 1)
	require.NoError(t, err)
	assert.Equal(t, id2, got.ID)
	assert.Equal(t, []float64{2}, got.Prices)
}

func TestFallbackSeriesProvider(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	empty := seriesFunc(func(context.Context, string, time.Time, time.Time) ([]models.PricePoint, error) {
		return nil, nil
	})
	failing := seriesFunc(func(context.Context, string, time.Time, time.Time) ([]models.PricePoint, error) {
		return nil, errors.New("down")
	})
	good := seriesFunc(func(context.Context, string, time.Time, time.Time) ([]models.PricePoint, error) {
		return []models.PricePoint{{Date: day, Close: 10}}, nil
	})

	got, err := NewFallbackSeriesProvider(applogger.Nop(), empty, failing, good).Fetch(ctx, "A", day, day)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = NewFallbackSeriesProvider(applogger.Nop(), empty, failing).Fetch(ctx, "A", day, day)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NewFallbackSeriesProvider(applogger.Nop(), failing, nil).Fetch(ctx, "A", day, day)
	assert.Error(t, err)
}

func TestFallbackSeriesProvider_ShortSeriesFallsThrough(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	series := func(n int) seriesFunc {
		return func(context.Context, string, time.Time, time.Time) ([]models.PricePoint, error) {
			out := make([]models.PricePoint, n)
			for i := range out {
				out[i] = models.PricePoint{Date: day.AddDate(0, 0, i), Close: float64(10 + i)}
			}
			return out, nil
		}
	}

	got, err := NewFallbackSeriesProvider(applogger.Nop(), series(5), series(1500)).
		WithMinPoints(61).
		Fetch(ctx, "A", day, day.AddDate(5, 0, 0))
	require.NoError(t, err)
	assert.Len(t, got, 1500)

	// nothing long enough: the longest series is still returned
	got, err = NewFallbackSeriesProvider(applogger.Nop(), series(5), series(20), series(0)).
		WithMinPoints(61).
		Fetch(ctx, "A", day, day)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestFallbackPriceLookup_SkipsFailuresAndZero(t *testing.T) {
	zero := priceFunc(func(context.Context, string) (float64, error) { return 0, nil })
	failing := priceFunc(func(context.Context, string) (float64, error) { return 0, errors.New("boom") })
	good := priceFunc(func(context.Context, string) (float64, error) { return 42, nil })

	p, err := NewFallbackPriceLookup(zero, failing, good).CurrentPrice(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 42.0, p)

	_, err = NewFallbackPriceLookup(zero, failing).CurrentPrice(context.Background(), "A")
	assert.Error(t, err)
}

func TestCachedPriceLookup_MemoizesSuccess(t *testing.T) {
	calls := 0
	var next domrepo.PriceLookup = priceFunc(func(context.Context, string) (float64, error) {
		calls++
		return 7, nil
	})
	l := NewCachedPriceLookup(next, icache.NewTTLCache[float64](), time.Minute)

	for i := 0; i < 3; i++ {
		p, err := l.CurrentPrice(context.Background(), "A")
		require.NoError(t, err)
		assert.Equal(t, 7.0, p)
	}
	assert.Equal(t, 1, calls)
}
