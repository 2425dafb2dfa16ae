package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "app.yaml", `
environment: production
forecast:
  look_back: 10
  epochs: 5
  hidden_units: [32, 16]
  cache_ttl: 24h
  train_timeout: 30s
portfolio:
  sqlite_path: /data/portfolio.db
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 10, c.Forecast.LookBack)
	assert.Equal(t, 5, c.Forecast.Epochs)
	assert.Equal(t, []int{32, 16}, c.Forecast.HiddenUnits)
	assert.Equal(t, 24*time.Hour, c.Forecast.CacheTTL)
	assert.Equal(t, 30*time.Second, c.Forecast.TrainTimeout)
	assert.Equal(t, 16, c.Forecast.BatchSize, "unset keys keep defaults")
	assert.Equal(t, "/data/portfolio.db", c.Portfolio.SQLitePath)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "app.toml", `
environment = "staging"

[forecast]
look_back = 20
warmup_cron = "0 0 6 * * 1-5"
warmup_symbols = ["AAPL", "MSFT"]
warmup_horizons = [7, 30]

[redis]
enabled = true
addr = "redis:6379"
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, 20, c.Forecast.LookBack)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Forecast.WarmupSymbols)
	assert.Equal(t, []int{7, 30}, c.Forecast.WarmupHorizons)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing environment", func(c *Config) { c.Environment = "" }, "environment is required"},
		{"zero look back", func(c *Config) { c.Forecast.LookBack = 0 }, "forecast.look_back"},
		{"one hidden layer", func(c *Config) { c.Forecast.HiddenUnits = []int{50} }, "forecast.hidden_units"},
		{"no timeout", func(c *Config) { c.Forecast.TrainTimeout = 0 }, "forecast.train_timeout"},
		{"write timeout under training", func(c *Config) { c.Server.WriteTimeout = c.Forecast.TrainTimeout }, "server.write_timeout"},
		{"negative ttl", func(c *Config) { c.Forecast.CacheTTL = -time.Second }, "forecast.cache_ttl"},
		{"default above max", func(c *Config) { c.Forecast.DefaultHorizon = 400 }, "forecast.default_horizon"},
		{"warmup without symbols", func(c *Config) { c.Forecast.WarmupCron = "@daily" }, "warmup_symbols"},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, "kafka.brokers"},
		{"finnhub without key", func(c *Config) { c.Finnhub.Enabled = true }, "finnhub.api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"FINCAST_ENV":   "ci",
		"FINCAST_PORT":  "9090",
		"KAFKA_BROKERS": "k1:9092, k2:9092,",
		"PORTFOLIO_DB":  "/tmp/p.db",
	}
	c := Default()
	c.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "ci", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "/tmp/p.db", c.Portfolio.SQLitePath)
}
