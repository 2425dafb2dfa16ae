package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
)

func TestParseTrades(t *testing.T) {
	frame := []byte(`{"type":"trade","data":[{"s":"AAPL","p":190.1,"v":3,"t":1704200000000},{"s":"","p":1,"v":1,"t":1}]}`)
	got := parseTrades(frame)
	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, int64(1704200000000), got[0].Timestamp.UnixMilli())

	assert.Nil(t, parseTrades([]byte(`{"type":"ping"}`)))
	assert.Nil(t, parseTrades([]byte(`not json`)))
}

func TestClient_StreamsTradesFromSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub map[string]string
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub["symbol"]
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"trade","data":[{"s":"MSFT","p":410.5,"v":2,"t":1704200000000}]}`))
		// hold the socket open until the client leaves
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := New(applogger.Nop(), "k", "ws"+strings.TrimPrefix(srv.URL, "http"), []string{"MSFT"}, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Subscribe(ctx))
	assert.Equal(t, "MSFT", <-subscribed)

	trades, _ := c.Read(ctx)
	select {
	case tr := <-trades:
		assert.Equal(t, 410.5, tr.Price)
	case <-ctx.Done():
		t.Fatal("no trade received")
	}
	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
}

func TestQuoteBook(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	b := NewQuoteBook(time.Minute)
	b.now = func() time.Time { return now }

	b.Update([]*models.Trade{
		{Symbol: "A", Price: 10, Timestamp: now.Add(-10 * time.Second)},
		{Symbol: "A", Price: 9, Timestamp: now.Add(-20 * time.Second)},
		{Symbol: "B", Price: 5, Timestamp: now.Add(-2 * time.Minute)},
	})

	p, err := b.CurrentPrice(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 10.0, p)

	_, err = b.CurrentPrice(context.Background(), "B")
	assert.Error(t, err)
	_, err = b.CurrentPrice(context.Background(), "C")
	assert.Error(t, err)
}
