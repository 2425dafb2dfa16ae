package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WithBindsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf).With(String("symbol", "AAPL"), Int("horizon", 7))

	log.Info("forecast computed", Float64("rmse", 1.25), Duration("took", 1500*time.Millisecond))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "forecast computed", entry["message"])
	assert.Equal(t, "AAPL", entry["symbol"])
	assert.Equal(t, float64(7), entry["horizon"])
	assert.Equal(t, 1.25, entry["rmse"])
	assert.Equal(t, float64(1500), entry["took"])
}

func TestLogger_ErrorField(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).Error("lookup failed", Error(errors.New("boom")))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["error"])
}

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishJSON(_ context.Context, topic, _ string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestCollector_AggregatesRepeatsAndFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	log := NewWriter(&bytes.Buffer{})
	log.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		MaxSamples:     2,
		Topic:          "errors",
		Publisher:      pub,
	})

	for _, sym := range []string{"AAPL", "MSFT", "NVDA"} {
		log.Error("price lookup failed", String("symbol", sym))
	}
	log.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "errors", pub.topic)
	require.Len(t, pub.batches[0], 1)

	entry := pub.batches[0][0]
	assert.Equal(t, 3, entry.Count)
	assert.Equal(t, "error", entry.Level)
	assert.Len(t, entry.Samples, 2)
	assert.Equal(t, "AAPL", entry.Samples[0]["symbol"])
}
