package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	drepo "FinCast/internal/domain/repository"
	"FinCast/internal/domain/service"
	"FinCast/internal/handler/api"
	"FinCast/internal/repository"
	"FinCast/internal/scheduler"
	icache "FinCast/internal/service/cache"
	"FinCast/internal/service/finnhub"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/marketdata"
	"FinCast/internal/usecase"
	pkgcache "FinCast/pkg/cache"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/queue"
	"FinCast/pkg/server"
)

// ProvideRegistry creates the process-wide Prometheus registry.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerMetrics(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger. With kafka enabled, error
// entries are aggregated and shipped to the error topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.ErrorTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			MaxSamples:     5,
			Topic:          cfg.Kafka.ErrorTopic,
			Publisher:      producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideClickHouseClient connects to ClickHouse and creates the quote table,
// or returns nil when clickhouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithBatching(cfg.ClickHouse.BatchSize, cfg.ClickHouse.BatchTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if err := client.InitSchema(ctx, repository.QuoteSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCache returns the in-process cache, layered over Redis when enabled.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(10000)), nil
	}
	remote, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(remote, pkgcache.WithLayeredMemoryTTL(time.Minute)), nil
}

func ProvidePortfolioStore(cfg *config.Config) (*repository.SQLitePortfolioStore, error) {
	store, err := repository.NewSQLitePortfolioStore(cfg.Portfolio.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("portfolio store: %w", err)
	}
	return store, nil
}

func ProvideQuoteStore(ch *pkgch.Client, l *applogger.Logger) *repository.CHQuoteStore {
	if ch == nil {
		return nil
	}
	return repository.NewCHQuoteStore(ch, l)
}

func ProvideMarketData(cfg *config.Config, l *applogger.Logger) *marketdata.Client {
	if !cfg.Market.Enabled {
		return nil
	}
	return marketdata.NewClient(l,
		marketdata.WithBaseURL(cfg.Market.BaseURL),
		marketdata.WithRateLimit(cfg.Market.RequestsPerSecond, cfg.Market.Burst),
		marketdata.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Market.Timeout))),
	)
}

func ProvideQuoteBook(cfg *config.Config) *finnhub.QuoteBook {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	return finnhub.NewQuoteBook(cfg.Finnhub.QuoteMaxAge)
}

// ProvideSeriesProvider prefers locally collected quotes and falls back to the market data API.
func ProvideSeriesProvider(cfg *config.Config, l *applogger.Logger, quotes *repository.CHQuoteStore, market *marketdata.Client) drepo.SeriesProvider {
	var providers []drepo.SeriesProvider
	if quotes != nil {
		providers = append(providers, quotes)
	}
	if market != nil {
		providers = append(providers, market)
	}
	return repository.NewFallbackSeriesProvider(l, providers...).WithMinPoints(cfg.Forecast.LookBack + 1)
}

// ProvidePriceLookup chains live quotes, stored quotes and the market data API behind a short TTL cache.
func ProvidePriceLookup(cfg *config.Config, book *finnhub.QuoteBook, quotes *repository.CHQuoteStore, market *marketdata.Client) drepo.PriceLookup {
	var lookups []drepo.PriceLookup
	if book != nil {
		lookups = append(lookups, book)
	}
	if quotes != nil {
		lookups = append(lookups, quotes)
	}
	if market != nil {
		lookups = append(lookups, market)
	}
	return repository.NewCachedPriceLookup(
		repository.NewFallbackPriceLookup(lookups...),
		icache.NewTTLCache[float64](),
		cfg.Portfolio.PriceTTL,
	)
}

func ProvidePredictionStore(cfg *config.Config, c pkgcache.Service) drepo.PredictionStore {
	return repository.NewCachePredictionStore(c, cfg.Forecast.CacheTTL)
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) drepo.EventPublisher {
	if producer == nil || cfg.Kafka.PredictionTopic == "" {
		return repository.NopEventPublisher{}
	}
	return repository.NewKafkaEventPublisher(producer, cfg.Kafka.PredictionTopic)
}

func ProvideForecaster(cfg *config.Config, l *applogger.Logger) service.Forecaster {
	f := cfg.Forecast
	return forecast.NewEngine(forecast.Config{
		LookBack:     f.LookBack,
		Epochs:       f.Epochs,
		BatchSize:    f.BatchSize,
		Hidden1:      f.HiddenUnits[0],
		Hidden2:      f.HiddenUnits[1],
		LearningRate: f.LearningRate,
		Seed:         f.Seed,
	}, l)
}

func ProvideForecastService(
	cfg *config.Config,
	series drepo.SeriesProvider,
	store drepo.PredictionStore,
	forecaster service.Forecaster,
	events drepo.EventPublisher,
	m *metrics.Recorder,
	l *applogger.Logger,
) *usecase.ForecastService {
	f := cfg.Forecast
	return usecase.NewForecastService(usecase.ForecastConfig{
		DefaultHorizon: f.DefaultHorizon,
		MaxHorizon:     f.MaxHorizon,
		TrainTimeout:   f.TrainTimeout,
		HistoryStart:   f.HistoryStart,
		HistoryEnd:     f.HistoryEnd,
		Workers:        f.Workers,
	}, series, store, forecaster, events, m, l)
}

func ProvidePortfolioAnalyzer(
	store *repository.SQLitePortfolioStore,
	prices drepo.PriceLookup,
	m *metrics.Recorder,
	l *applogger.Logger,
) *usecase.PortfolioAnalyzer {
	return usecase.NewPortfolioAnalyzer(store, store, store, prices, m, l)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	rl := cfg.Server.RateLimit
	if rl.Capacity <= 0 {
		return nil
	}
	return ratelimit.New(rl.Capacity, rl.RefillPerSec)
}

// ProvideHTTPServer registers the forecast and portfolio routes.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	forecasts *usecase.ForecastService,
	analyzer *usecase.PortfolioAnalyzer,
	holdings *usecase.HoldingsForecaster,
	jobs *queue.RedisQueue,
	rl *ratelimit.Limiter,
) *xhttp.Server {
	var publisher queue.Publisher
	if jobs != nil {
		publisher = jobs
	}
	handlers := []xhttp.Handler{
		api.NewForecastHandler(l, forecasts, publisher, rl),
		api.NewPortfolioHandler(l, analyzer, holdings, rl),
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(metricsPath, reg, reg),
	)
}

// ProvideScheduler registers the warmup job, or returns nil without a cron spec.
func ProvideScheduler(cfg *config.Config, forecasts *usecase.ForecastService, l *applogger.Logger) (*scheduler.Scheduler, error) {
	f := cfg.Forecast
	if f.WarmupCron == "" {
		return nil, nil
	}
	s := scheduler.New(forecasts, f.WarmupSymbols, f.WarmupHorizons, l)
	if err := s.Register(f.WarmupCron); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideKafkaConsumer consumes forecast requests, or returns nil when kafka is disabled.
func ProvideKafkaConsumer(
	cfg *config.Config,
	forecasts *usecase.ForecastService,
	m *metrics.Recorder,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.RequestTopic == "" {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewForecastRequestHandler(cfg.Kafka.RequestTopic, forecasts, l))
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(context.Context, string, kafka.Message, error) { m.RecordError("kafka_handle") },
	})
	return consumer, nil
}

// ProvideJobQueue runs forecast jobs posted over HTTP on a Redis list,
// or returns nil when the queue is disabled.
func ProvideJobQueue(cfg *config.Config, forecasts *usecase.ForecastService, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		KeyPrefix:  cfg.Queue.KeyPrefix,
	}, client)
	q.RegisterJob(usecase.NewForecastRequestHandler(cfg.Kafka.RequestTopic, forecasts, l))
	return q
}

// ProvideQuoteCollector streams live trades into the quote book and ClickHouse,
// or returns nil when finnhub is disabled.
func ProvideQuoteCollector(
	cfg *config.Config,
	book *finnhub.QuoteBook,
	quotes *repository.CHQuoteStore,
	m *metrics.Recorder,
	l *applogger.Logger,
) *usecase.QuoteCollector {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	stream := finnhub.New(l, cfg.Finnhub.APIKey, cfg.Finnhub.WebSocketURL, cfg.Finnhub.Symbols, cfg.Finnhub.ReconnectDelay)
	var storage drepo.QuoteStorage
	if quotes != nil {
		storage = quotes
	}
	return usecase.NewQuoteCollector(stream, storage, book, m, l, cfg.ClickHouse.BatchSize, cfg.ClickHouse.BatchTimeout)
}

// ProvideApp assembles the application and registers resources to release on shutdown.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	forecasts *usecase.ForecastService,
	analyzer *usecase.PortfolioAnalyzer,
	holdings *usecase.HoldingsForecaster,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	jobs *queue.RedisQueue,
	collector *usecase.QuoteCollector,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	store *repository.SQLitePortfolioStore,
	c pkgcache.Service,
) *server.App {
	app := server.New(cfg, l, server.Components{
		HTTP:      httpServer,
		Forecasts: forecasts,
		Analyzer:  analyzer,
		Holdings:  holdings,
		Scheduler: sched,
		Consumer:  consumer,
		Queue:     jobs,
		Collector: collector,
	})
	// released in reverse order
	if producer != nil {
		app.OnClose("kafka producer", producer)
	}
	if ch != nil {
		app.OnClose("clickhouse", ch)
	}
	if jobs != nil {
		app.OnClose("job queue", jobs)
	}
	app.OnClose("portfolio store", store)
	app.OnClose("cache", c)
	return app
}
