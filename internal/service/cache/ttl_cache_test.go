package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_ExpiresEntries(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[float64]().WithClock(func() time.Time { return now })

	c.Set("AAPL", 190.5, time.Minute)
	c.Set("MSFT", 410, 0)

	v, ok := c.Get("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 190.5, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("AAPL")
	assert.False(t, ok)

	v, ok = c.Get("MSFT")
	assert.True(t, ok)
	assert.Equal(t, 410.0, v)
	assert.Equal(t, 1, c.Len())
}
