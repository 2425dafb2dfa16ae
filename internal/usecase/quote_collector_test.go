package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
)

type chanStream struct {
	trades chan *models.Trade
	errs   chan error
	closed bool
	mu     sync.Mutex
}

func (s *chanStream) Connect(context.Context) error   { return nil }
func (s *chanStream) Subscribe(context.Context) error { return nil }
func (s *chanStream) Read(context.Context) (<-chan *models.Trade, <-chan error) {
	return s.trades, s.errs
}
func (s *chanStream) Reconnect(context.Context) error { return nil }
func (s *chanStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
func (s *chanStream) IsConnected() bool { return true }

type captureQuotes struct {
	mu      sync.Mutex
	batches [][]*models.Trade
}

func (c *captureQuotes) StoreBatch(_ context.Context, trades []*models.Trade) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, trades)
	return nil
}

func (c *captureQuotes) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

type captureSink struct {
	mu   sync.Mutex
	seen int
}

func (s *captureSink) Update(trades []*models.Trade) {
	s.mu.Lock()
	s.seen += len(trades)
	s.mu.Unlock()
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen
}

func TestQuoteCollector_BatchesAndFlushesOnShutdown(t *testing.T) {
	stream := &chanStream{trades: make(chan *models.Trade, 8), errs: make(chan error)}
	storage := &captureQuotes{}
	sink := &captureSink{}
	c := NewQuoteCollector(stream, storage, sink, metrics.Nop{}, applogger.Nop(), 2, time.Hour)

	require.NoError(t, c.Start(context.Background()))
	now := time.Now()
	for i := 0; i < 3; i++ {
		stream.trades <- &models.Trade{Symbol: "AAPL", Price: 100 + float64(i), Timestamp: now}
	}

	require.Eventually(t, func() bool { return sink.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, storage.total(), "a full batch is written before the flush interval")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))

	assert.Equal(t, 3, storage.total())
	assert.True(t, stream.closed)
}
