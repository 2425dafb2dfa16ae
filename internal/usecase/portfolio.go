package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

// priceConcurrency caps parallel price lookups per analysis.
const priceConcurrency = 8

// PortfolioAnalyzer values a portfolio from its transaction history and current prices.
type PortfolioAnalyzer struct {
	portfolios   drepo.PortfolioStore
	assets       drepo.AssetStore
	transactions drepo.TransactionStore
	prices       drepo.PriceLookup
	metrics      drepo.Metrics
	l            *applogger.Logger
}

func NewPortfolioAnalyzer(
	portfolios drepo.PortfolioStore,
	assets drepo.AssetStore,
	transactions drepo.TransactionStore,
	prices drepo.PriceLookup,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *PortfolioAnalyzer {
	return &PortfolioAnalyzer{
		portfolios:   portfolios,
		assets:       assets,
		transactions: transactions,
		prices:       prices,
		metrics:      metrics,
		l:            l.With(applogger.String("usecase", "portfolio")),
	}
}

// Holdings returns the assets of an existing portfolio, failing when there are none.
func (a *PortfolioAnalyzer) Holdings(ctx context.Context, portfolioID string) ([]models.Asset, error) {
	if _, err := a.portfolios.Portfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	assets, err := a.assets.AssetsByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	if len(assets) == 0 {
		return nil, models.ErrNoHoldings
	}
	return assets, nil
}

// Analyze computes quantity, average cost, value and weight for every asset.
func (a *PortfolioAnalyzer) Analyze(ctx context.Context, portfolioID string) (*models.PortfolioAnalysis, error) {
	start := time.Now()
	assets, err := a.Holdings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	txs, err := a.transactions.TransactionsByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, models.ErrNoTransactions
	}

	byAsset := make(map[string][]models.Transaction, len(assets))
	for _, tx := range txs {
		byAsset[tx.AssetID] = append(byAsset[tx.AssetID], tx)
	}

	prices := a.currentPrices(ctx, assets)

	positions := make([]models.Position, len(assets))
	values := make([]decimal.Decimal, len(assets))
	total := decimal.Zero
	for i, asset := range assets {
		qty, avg, skipped := aggregate(byAsset[asset.ID])
		if skipped > 0 {
			a.l.Warn("skipped transactions with non-finite values",
				applogger.String("symbol", asset.Symbol),
				applogger.Int("skipped", skipped))
		}
		price := decimal.NewFromFloat(prices[i])
		values[i] = qty.Mul(price)
		total = total.Add(values[i])
		positions[i] = models.Position{
			Asset:        asset,
			Quantity:     qty.InexactFloat64(),
			AverageCost:  avg.InexactFloat64(),
			CurrentPrice: prices[i],
			CurrentValue: values[i].InexactFloat64(),
		}
	}
	if total.IsZero() {
		return nil, models.ErrZeroValuation
	}
	for i := range positions {
		positions[i].Weight = values[i].DivRound(total, 12).InexactFloat64()
	}

	a.metrics.RecordAnalysis(time.Since(start).Seconds())
	return &models.PortfolioAnalysis{
		PortfolioID: portfolioID,
		TotalValue:  total.InexactFloat64(),
		Positions:   positions,
	}, nil
}

// aggregate returns total shares and the share-weighted average price; the
// average is zero when shares net to zero. Transactions carrying NaN or Inf
// are left out and counted in skipped.
func aggregate(txs []models.Transaction) (shares, avgCost decimal.Decimal, skipped int) {
	cost := decimal.Zero
	shares = decimal.Zero
	for _, tx := range txs {
		if !finite(tx.Shares) || !finite(tx.PricePerShare) {
			skipped++
			continue
		}
		s := decimal.NewFromFloat(tx.Shares)
		shares = shares.Add(s)
		cost = cost.Add(s.Mul(decimal.NewFromFloat(tx.PricePerShare)))
	}
	if shares.IsZero() {
		return shares, decimal.Zero, skipped
	}
	return shares, cost.DivRound(shares, 12), skipped
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// currentPrices looks prices up concurrently. A failed lookup or a negative or
// non-finite price yields 0.
func (a *PortfolioAnalyzer) currentPrices(ctx context.Context, assets []models.Asset) []float64 {
	out := make([]float64, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(priceConcurrency)
	for i, asset := range assets {
		i, symbol := i, asset.Symbol
		g.Go(func() error {
			p, err := a.prices.CurrentPrice(gctx, symbol)
			if err == nil && (p < 0 || !finite(p)) {
				err = fmt.Errorf("unusable price %v", p)
			}
			if err != nil {
				a.metrics.RecordPriceLookupFailure(symbol)
				a.l.Warn("price lookup failed, valuing at 0",
					applogger.String("symbol", symbol),
					applogger.Error(err))
				return nil
			}
			out[i] = p
			return nil
		})
	}
	_ = g.Wait()
	return out
}
