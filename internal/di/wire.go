//go:build wireinject
// +build wireinject

package di

import (
	"FinCast/internal/usecase"
	"FinCast/pkg/config"
	"FinCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideRegistry,
		ProvideMetrics,
		ProvideLogger,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideCache,

		// Repositories and data sources
		ProvidePortfolioStore,
		ProvideQuoteStore,
		ProvideMarketData,
		ProvideQuoteBook,
		ProvideSeriesProvider,
		ProvidePriceLookup,
		ProvidePredictionStore,
		ProvideEventPublisher,

		// Use cases
		ProvideForecaster,
		ProvideForecastService,
		ProvidePortfolioAnalyzer,
		usecase.NewHoldingsForecaster,

		// Transports and background jobs
		ProvideRateLimiter,
		ProvideJobQueue,
		ProvideHTTPServer,
		ProvideScheduler,
		ProvideKafkaConsumer,
		ProvideQuoteCollector,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
