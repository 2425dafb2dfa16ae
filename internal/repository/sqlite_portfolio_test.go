package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
)

func newTestStore(t *testing.T) *SQLitePortfolioStore {
	t.Helper()
	s, err := NewSQLitePortfolioStore(filepath.Join(t.TempDir(), "portfolio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLitePortfolioStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &models.Portfolio{UserID: "u1", Name: "core"}
	require.NoError(t, s.CreatePortfolio(ctx, p))
	require.NotEmpty(t, p.ID)

	a := &models.Asset{PortfolioID: p.ID, Symbol: "AAPL", Name: "Apple"}
	require.NoError(t, s.AddAsset(ctx, a))

	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.AddTransaction(ctx, &models.Transaction{
		PortfolioID: p.ID, AssetID: a.ID, Type: "buy", Shares: 5, PricePerShare: 10, CreatedAt: t0,
	}))
	require.NoError(t, s.AddTransaction(ctx, &models.Transaction{
		PortfolioID: p.ID, AssetID: a.ID, Type: "buy", Shares: 5, PricePerShare: 20, CreatedAt: t0.Add(time.Hour),
	}))

	got, err := s.Portfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "core", got.Name)
	assert.Equal(t, "USD", got.Currency)

	assets, err := s.AssetsByPortfolio(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "AAPL", assets[0].Symbol)

	txs, err := s.TransactionsByPortfolio(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, 10.0, txs[0].PricePerShare)
	assert.Equal(t, 20.0, txs[1].PricePerShare)
	assert.True(t, txs[0].CreatedAt.Equal(t0))
}

func TestSQLitePortfolioStore_MissingPortfolio(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Portfolio(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrPortfolioNotFound)

	assets, err := s.AssetsByPortfolio(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, assets)
}
