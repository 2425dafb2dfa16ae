package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
)

func newHoldings(t *testing.T, store *fakePortfolio, series *fakeSeries) (*HoldingsForecaster, *memStore) {
	t.Helper()
	svc, preds := newService(t, series, &stubForecaster{}, nil)
	analyzer := NewPortfolioAnalyzer(store, store, store, fakePrices{}, metrics.Nop{}, applogger.Nop())
	return NewHoldingsForecaster(analyzer, svc), preds
}

func TestForecastHoldings_PartialFailure(t *testing.T) {
	store := onePortfolio(
		[]models.Asset{{ID: "a1", Symbol: "AAPL"}, {ID: "a2", Symbol: "DELISTED"}, {ID: "a3", Symbol: "aapl"}},
		nil,
	)
	h, preds := newHoldings(t, store, tenToTwenty())

	got, err := h.ForecastHoldings(context.Background(), "p1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	ok := got["AAPL"]
	require.NotNil(t, ok.Prediction)
	assert.Empty(t, ok.Error)
	assert.Len(t, ok.Prediction.Prices, 2)

	bad := got["DELISTED"]
	assert.Nil(t, bad.Prediction)
	assert.Contains(t, bad.Error, models.ErrNoHistoricalData.Error())
	assert.Equal(t, 1, preds.len())
}

func TestForecastHoldings_NoHoldingsFailsWholeRequest(t *testing.T) {
	h, _ := newHoldings(t, onePortfolio(nil, nil), tenToTwenty())

	_, err := h.ForecastHoldings(context.Background(), "p1", 2)
	assert.ErrorIs(t, err, models.ErrNoHoldings)
}

func TestForecastAsset(t *testing.T) {
	store := onePortfolio([]models.Asset{{ID: "a1", Symbol: "AAPL"}}, nil)
	h, _ := newHoldings(t, store, tenToTwenty())

	p, err := h.ForecastAsset(context.Background(), "p1", "aapl", 4)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", p.Symbol)
	assert.Len(t, p.Dates, 4)

	_, err = h.ForecastAsset(context.Background(), "p1", "MSFT", 4)
	assert.ErrorIs(t, err, models.ErrAssetNotInPortfolio)
}
