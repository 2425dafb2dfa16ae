package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// SeriesProvider supplies daily closes for [from, to]. No data is an empty slice, not an error.
type SeriesProvider interface {
	Fetch(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error)
}

// PriceLookup returns the latest known price for a symbol.
type PriceLookup interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

type PortfolioStore interface {
	Portfolio(ctx context.Context, portfolioID string) (*models.Portfolio, error)
}

type AssetStore interface {
	AssetsByPortfolio(ctx context.Context, portfolioID string) ([]models.Asset, error)
}

type TransactionStore interface {
	TransactionsByPortfolio(ctx context.Context, portfolioID string) ([]models.Transaction, error)
}

// PredictionStore persists forecast artifacts keyed by (symbol, horizon).
// Get reports (nil, nil) on a miss.
type PredictionStore interface {
	Get(ctx context.Context, symbol string, horizon int) (*models.Prediction, error)
	Put(ctx context.Context, p *models.Prediction) (string, error)
}

type EventPublisher interface {
	PublishPredictionCreated(ctx context.Context, evt models.PredictionCreated) error
}

// MarketStream is a live trade feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// QuoteStorage persists ticks used to build daily series.
type QuoteStorage interface {
	StoreBatch(ctx context.Context, trades []*models.Trade) error
}

type Metrics interface {
	RecordForecast(result string)
	RecordTraining(seconds float64)
	RecordError(kind string)
	RecordAnalysis(seconds float64)
	RecordPriceLookupFailure(symbol string)
	RecordQuotes(n int)
}
