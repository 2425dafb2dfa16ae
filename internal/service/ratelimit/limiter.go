package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key (client address).
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*visitor
	capacity int
	refill   rate.Limit
	idle     time.Duration
	now      func() time.Time
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// New builds a limiter allowing bursts of capacity refilled at refillPerSec.
// Buckets unused for ten minutes are dropped.
func New(capacity, refillPerSec float64) *Limiter {
	c := int(capacity)
	if c < 1 {
		c = 1
	}
	return &Limiter{
		m:        make(map[string]*visitor),
		capacity: c,
		refill:   rate.Limit(refillPerSec),
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	v, ok := l.m[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.refill, l.capacity)}
		l.m[key] = v
		if len(l.m)%256 == 0 {
			l.evictIdle(now)
		}
	}
	v.seen = now
	l.mu.Unlock()
	return v.lim.AllowN(now, 1)
}

func (l *Limiter) evictIdle(now time.Time) {
	for k, v := range l.m {
		if now.Sub(v.seen) > l.idle {
			delete(l.m, k)
		}
	}
}
