package usecase

import (
	"context"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

// QuoteSink receives every streamed trade as soon as it arrives.
type QuoteSink interface {
	Update(trades []*models.Trade)
}

// QuoteCollector reads the live trade stream, feeds the in-memory quote sink
// and writes trades to storage in batches.
type QuoteCollector struct {
	stream  drepo.MarketStream
	storage drepo.QuoteStorage
	sink    QuoteSink
	metrics drepo.Metrics
	l       *applogger.Logger

	batchSize  int
	flushEvery time.Duration

	mu     sync.Mutex
	batch  []*models.Trade
	cancel context.CancelFunc
	done   chan struct{}
}

// NewQuoteCollector builds a collector; storage and sink are optional.
func NewQuoteCollector(
	stream drepo.MarketStream,
	storage drepo.QuoteStorage,
	sink QuoteSink,
	metrics drepo.Metrics,
	l *applogger.Logger,
	batchSize int,
	flushEvery time.Duration,
) *QuoteCollector {
	if batchSize < 1 {
		batchSize = 500
	}
	if flushEvery <= 0 {
		flushEvery = 2 * time.Second
	}
	return &QuoteCollector{
		stream:     stream,
		storage:    storage,
		sink:       sink,
		metrics:    metrics,
		l:          l.With(applogger.String("component", "quote_collector")),
		batchSize:  batchSize,
		flushEvery: flushEvery,
	}
}

// Start connects the stream and runs the collection loop in the background.
func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		_ = c.stream.Close()
		return err
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

func (c *QuoteCollector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushEvery)
	defer ticker.Stop()

	trCh, errCh := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			c.flush(context.Background())
			return
		case <-ticker.C:
			c.flush(ctx)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			c.metrics.RecordError("stream")
			c.l.Warn("stream failed, reconnecting", applogger.Error(err))
			if rerr := c.stream.Reconnect(ctx); rerr != nil {
				c.l.Error("reconnect failed", applogger.Error(rerr))
				if ctx.Err() != nil {
					continue
				}
			}
			trCh, errCh = c.stream.Read(ctx)
		case t, ok := <-trCh:
			if !ok {
				trCh = nil
				continue
			}
			c.add(ctx, t)
		}
	}
}

func (c *QuoteCollector) add(ctx context.Context, t *models.Trade) {
	if t == nil {
		return
	}
	if c.sink != nil {
		c.sink.Update([]*models.Trade{t})
	}
	c.mu.Lock()
	c.batch = append(c.batch, t)
	full := len(c.batch) >= c.batchSize
	c.mu.Unlock()
	if full {
		c.flush(ctx)
	}
}

func (c *QuoteCollector) flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.batch
	c.batch = nil
	c.mu.Unlock()
	if len(batch) == 0 {
		return
	}
	c.metrics.RecordQuotes(len(batch))
	if c.storage == nil {
		return
	}
	if err := c.storage.StoreBatch(ctx, batch); err != nil {
		c.metrics.RecordError("quote_store")
		c.l.Error("store quotes", applogger.Int("count", len(batch)), applogger.Error(err))
	}
}

// Shutdown stops the loop, flushes pending trades and closes the stream.
func (c *QuoteCollector) Shutdown(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
		select {
		case <-c.done:
		case <-ctx.Done():
		}
	}
	return c.stream.Close()
}
