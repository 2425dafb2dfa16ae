package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"FinCast/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" toml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" toml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity" toml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec" toml:"refill_per_sec"`
		} `yaml:"rate_limit" toml:"rate_limit"`
	} `yaml:"server" toml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" toml:"enabled"`
		Path    string `yaml:"path" toml:"path"`
	} `yaml:"metrics" toml:"metrics"`
	Logging struct {
		Level  string `yaml:"level" toml:"level"`
		Format string `yaml:"format" toml:"format"`
		Output string `yaml:"output" toml:"output"`
	} `yaml:"logging" toml:"logging"`
	Forecast struct {
		LookBack       int           `yaml:"look_back" toml:"look_back"`
		Epochs         int           `yaml:"epochs" toml:"epochs"`
		BatchSize      int           `yaml:"batch_size" toml:"batch_size"`
		HiddenUnits    []int         `yaml:"hidden_units" toml:"hidden_units"`
		LearningRate   float64       `yaml:"learning_rate" toml:"learning_rate"`
		Seed           int64         `yaml:"seed" toml:"seed"`
		TrainTimeout   time.Duration `yaml:"train_timeout" toml:"train_timeout"`
		CacheTTL       time.Duration `yaml:"cache_ttl" toml:"cache_ttl"`
		HistoryStart   string        `yaml:"history_start" toml:"history_start"`
		HistoryEnd     string        `yaml:"history_end" toml:"history_end"`
		Workers        int           `yaml:"workers" toml:"workers"`
		DefaultHorizon int           `yaml:"default_horizon" toml:"default_horizon"`
		MaxHorizon     int           `yaml:"max_horizon" toml:"max_horizon"`
		WarmupCron     string        `yaml:"warmup_cron" toml:"warmup_cron"`
		WarmupSymbols  []string      `yaml:"warmup_symbols" toml:"warmup_symbols"`
		WarmupHorizons []int         `yaml:"warmup_horizons" toml:"warmup_horizons"`
	} `yaml:"forecast" toml:"forecast"`
	Portfolio struct {
		SQLitePath string        `yaml:"sqlite_path" toml:"sqlite_path"`
		PriceTTL   time.Duration `yaml:"price_ttl" toml:"price_ttl"`
	} `yaml:"portfolio" toml:"portfolio"`
	Market struct {
		Enabled           bool          `yaml:"enabled" toml:"enabled"`
		BaseURL           string        `yaml:"base_url" toml:"base_url"`
		Timeout           time.Duration `yaml:"timeout" toml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second" toml:"requests_per_second"`
		Burst             int           `yaml:"burst" toml:"burst"`
	} `yaml:"market" toml:"market"`
	Kafka struct {
		Enabled         bool     `yaml:"enabled" toml:"enabled"`
		Brokers         []string `yaml:"brokers" toml:"brokers"`
		PredictionTopic string   `yaml:"prediction_topic" toml:"prediction_topic"`
		RequestTopic    string   `yaml:"request_topic" toml:"request_topic"`
		ErrorTopic      string   `yaml:"error_topic" toml:"error_topic"`
		RequiredAcks    int      `yaml:"required_acks" toml:"required_acks"`
		Compression     string   `yaml:"compression" toml:"compression"`
		Producer        struct {
			MaxAttempts  int           `yaml:"max_attempts" toml:"max_attempts"`
			Linger       time.Duration `yaml:"linger" toml:"linger"`
			BatchSize    int           `yaml:"batch_size" toml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
		} `yaml:"producer" toml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" toml:"group_id"`
			Workers    int           `yaml:"workers" toml:"workers"`
			RetryMax   int           `yaml:"retry_max" toml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min" toml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max" toml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic" toml:"dlq_topic"`
		} `yaml:"consumer" toml:"consumer"`
	} `yaml:"kafka" toml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled" toml:"enabled"`
		Host             string        `yaml:"host" toml:"host"`
		Port             int           `yaml:"port" toml:"port"`
		Database         string        `yaml:"database" toml:"database"`
		User             string        `yaml:"user" toml:"user"`
		Password         string        `yaml:"password" toml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout" toml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout" toml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" toml:"max_execution_time"`
		BatchSize        int           `yaml:"batch_size" toml:"batch_size"`
		BatchTimeout     time.Duration `yaml:"batch_timeout" toml:"batch_timeout"`
	} `yaml:"clickhouse" toml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled" toml:"enabled"`
		Addr     string `yaml:"addr" toml:"addr"`
		Password string `yaml:"password" toml:"password"`
		DB       int    `yaml:"db" toml:"db"`
	} `yaml:"redis" toml:"redis"`
	Queue struct {
		Enabled    bool          `yaml:"enabled" toml:"enabled"`
		Workers    int           `yaml:"workers" toml:"workers"`
		RetryLimit int           `yaml:"retry_limit" toml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay" toml:"retry_delay"`
		KeyPrefix  string        `yaml:"key_prefix" toml:"key_prefix"`
	} `yaml:"queue" toml:"queue"`
	Finnhub struct {
		Enabled        bool          `yaml:"enabled" toml:"enabled"`
		APIKey         string        `yaml:"api_key" toml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url" toml:"websocket_url"`
		Symbols        []string      `yaml:"symbols" toml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" toml:"reconnect_delay"`
		QuoteMaxAge    time.Duration `yaml:"quote_max_age" toml:"quote_max_age"`
	} `yaml:"finnhub" toml:"finnhub"`
}

// Default returns a configuration usable for local runs without any backing services.
func Default() *Config {
	var c Config
	c.Environment = "development"

	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	// a synchronous forecast request can wait out a full training run
	c.Server.WriteTimeout = 16 * time.Minute
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.RateLimit.Capacity = 20
	c.Server.RateLimit.RefillPerSec = 5

	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"

	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"

	c.Forecast.LookBack = 60
	c.Forecast.Epochs = 50
	c.Forecast.BatchSize = 16
	c.Forecast.HiddenUnits = []int{50, 50}
	c.Forecast.LearningRate = 0.001
	c.Forecast.Seed = 42
	// Eight years of daily closes at these sizes take roughly 8s per epoch on
	// one core; see TestDefaultTrainingFitsTimeout in internal/services/forecast.
	c.Forecast.TrainTimeout = 15 * time.Minute
	c.Forecast.HistoryStart = "2018-01-01"
	c.Forecast.Workers = 2
	c.Forecast.DefaultHorizon = 30
	c.Forecast.MaxHorizon = 365

	c.Portfolio.SQLitePath = "fincast.db"
	c.Portfolio.PriceTTL = time.Minute

	c.Market.Enabled = true
	c.Market.BaseURL = "https://query1.finance.yahoo.com"
	c.Market.Timeout = 30 * time.Second
	c.Market.RequestsPerSecond = 2
	c.Market.Burst = 4

	c.Kafka.PredictionTopic = "fincast.predictions"
	c.Kafka.RequestTopic = "fincast.forecast-requests"
	c.Kafka.ErrorTopic = "fincast.errors"
	c.Kafka.RequiredAcks = 1
	c.Kafka.Producer.MaxAttempts = 5
	c.Kafka.Producer.Linger = 10 * time.Millisecond
	c.Kafka.Producer.BatchSize = 100
	c.Kafka.Producer.WriteTimeout = 10 * time.Second
	c.Kafka.Consumer.GroupID = "fincast"
	c.Kafka.Consumer.Workers = 2
	c.Kafka.Consumer.RetryMax = 3
	c.Kafka.Consumer.BackoffMin = 200 * time.Millisecond
	c.Kafka.Consumer.BackoffMax = 5 * time.Second

	c.ClickHouse.Host = "localhost"
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "default"
	c.ClickHouse.User = "default"
	c.ClickHouse.DialTimeout = 10 * time.Second
	c.ClickHouse.ReadTimeout = 30 * time.Second
	c.ClickHouse.MaxExecutionTime = 60 * time.Second
	c.ClickHouse.BatchSize = 500
	c.ClickHouse.BatchTimeout = 2 * time.Second

	c.Redis.Addr = "localhost:6379"

	c.Queue.Workers = 1
	c.Queue.RetryLimit = 3
	c.Queue.RetryDelay = 30 * time.Second
	c.Queue.KeyPrefix = "fincast:queue"

	c.Finnhub.WebSocketURL = "wss://ws.finnhub.io"
	c.Finnhub.ReconnectDelay = 5 * time.Second
	c.Finnhub.QuoteMaxAge = 15 * time.Minute

	return &c
}

// Load reads a YAML or TOML (by extension) configuration file over Default().
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := decode(path, b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func decode(path string, b []byte, c *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(b, c)
	default:
		return yaml.Unmarshal(b, c)
	}
}

// LoadWithEnv loads config from file and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.ApplyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the given lookup (os.Getenv in production).
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("FINCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("FINCAST_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := getenv("SYMBOLS"); v != "" {
		c.Finnhub.Symbols = splitList(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("PORTFOLIO_DB"); v != "" {
		c.Portfolio.SQLitePath = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	f := c.Forecast
	if f.LookBack < 1 {
		return fmt.Errorf("forecast.look_back must be >= 1, got %d", f.LookBack)
	}
	if f.Epochs < 1 {
		return fmt.Errorf("forecast.epochs must be >= 1, got %d", f.Epochs)
	}
	if f.BatchSize < 1 {
		return fmt.Errorf("forecast.batch_size must be >= 1, got %d", f.BatchSize)
	}
	if len(f.HiddenUnits) != 2 || f.HiddenUnits[0] < 1 || f.HiddenUnits[1] < 1 {
		return fmt.Errorf("forecast.hidden_units must hold two positive sizes, got %v", f.HiddenUnits)
	}
	if f.LearningRate <= 0 {
		return fmt.Errorf("forecast.learning_rate must be > 0")
	}
	if f.TrainTimeout <= 0 {
		return fmt.Errorf("forecast.train_timeout must be > 0")
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= f.TrainTimeout {
		return fmt.Errorf("server.write_timeout (%s) must exceed forecast.train_timeout (%s)", c.Server.WriteTimeout, f.TrainTimeout)
	}
	if f.CacheTTL < 0 {
		return fmt.Errorf("forecast.cache_ttl cannot be negative")
	}
	if f.Workers < 1 {
		return fmt.Errorf("forecast.workers must be >= 1, got %d", f.Workers)
	}
	if f.MaxHorizon < 1 || f.DefaultHorizon < 1 || f.DefaultHorizon > f.MaxHorizon {
		return fmt.Errorf("forecast.default_horizon must be within 1..max_horizon")
	}
	if f.HistoryStart == "" {
		return fmt.Errorf("forecast.history_start is required")
	}
	if f.WarmupCron != "" && (len(f.WarmupSymbols) == 0 || len(f.WarmupHorizons) == 0) {
		return fmt.Errorf("forecast.warmup_symbols and warmup_horizons are required with warmup_cron")
	}
	if c.Portfolio.SQLitePath == "" {
		return fmt.Errorf("portfolio.sqlite_path is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Queue.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when queue is enabled")
	}
	if c.Finnhub.Enabled {
		if c.Finnhub.APIKey == "" {
			return fmt.Errorf("finnhub.api_key is required")
		}
		if len(c.Finnhub.Symbols) == 0 {
			return fmt.Errorf("finnhub.symbols cannot be empty")
		}
	}
	return nil
}
