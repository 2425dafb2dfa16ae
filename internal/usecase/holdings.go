package usecase

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"FinCast/internal/domain/models"
	"FinCast/pkg/util"
)

// HoldingsForecaster runs forecasts across a portfolio's holdings.
type HoldingsForecaster struct {
	analyzer  *PortfolioAnalyzer
	forecasts *ForecastService
}

func NewHoldingsForecaster(analyzer *PortfolioAnalyzer, forecasts *ForecastService) *HoldingsForecaster {
	return &HoldingsForecaster{analyzer: analyzer, forecasts: forecasts}
}

// ForecastHoldings forecasts every held symbol. A failing symbol is reported
// in its own entry and does not fail the batch; only loading the holdings can.
func (h *HoldingsForecaster) ForecastHoldings(ctx context.Context, portfolioID string, horizon int) (map[string]models.HoldingForecast, error) {
	hz, err := h.forecasts.resolveHorizon(horizon)
	if err != nil {
		return nil, err
	}
	assets, err := h.analyzer.Holdings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(assets))
	seen := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		s := util.NormalizeSymbol(a.Symbol)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		symbols = append(symbols, s)
	}

	var mu sync.Mutex
	out := make(map[string]models.HoldingForecast, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, h.forecasts.cfg.Workers))
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			var entry models.HoldingForecast
			if p, err := h.forecasts.FetchOrCompute(gctx, symbol, hz); err != nil {
				entry.Error = err.Error()
			} else {
				entry.Prediction = p
			}
			mu.Lock()
			out[symbol] = entry
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ForecastAsset forecasts one symbol after checking the portfolio holds it.
func (h *HoldingsForecaster) ForecastAsset(ctx context.Context, portfolioID, symbol string, horizon int) (*models.Prediction, error) {
	hz, err := h.forecasts.resolveHorizon(horizon)
	if err != nil {
		return nil, err
	}
	assets, err := h.analyzer.Holdings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	want := util.NormalizeSymbol(symbol)
	for _, a := range assets {
		if util.NormalizeSymbol(a.Symbol) == want {
			return h.forecasts.FetchOrCompute(ctx, want, hz)
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrAssetNotInPortfolio, want)
}
