package finnhub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
)

// QuoteBook remembers the last streamed trade per symbol.
type QuoteBook struct {
	mu     sync.RWMutex
	last   map[string]models.Trade
	maxAge time.Duration
	now    func() time.Time
}

var _ drepo.PriceLookup = (*QuoteBook)(nil)

// NewQuoteBook serves prices no older than maxAge; maxAge <= 0 disables the age check.
func NewQuoteBook(maxAge time.Duration) *QuoteBook {
	return &QuoteBook{last: make(map[string]models.Trade), maxAge: maxAge, now: time.Now}
}

func (b *QuoteBook) Update(trades []*models.Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range trades {
		if t == nil {
			continue
		}
		if cur, ok := b.last[t.Symbol]; ok && cur.Timestamp.After(t.Timestamp) {
			continue
		}
		b.last[t.Symbol] = *t
	}
}

func (b *QuoteBook) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	b.mu.RLock()
	t, ok := b.last[symbol]
	b.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("no streamed quote for %s", symbol)
	}
	if b.maxAge > 0 && b.now().Sub(t.Timestamp) > b.maxAge {
		return 0, fmt.Errorf("streamed quote for %s is stale", symbol)
	}
	return t.Price, nil
}
