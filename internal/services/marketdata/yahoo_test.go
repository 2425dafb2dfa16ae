package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "FinCast/pkg/logger"
)

const chartBody = `{"chart":{"result":[{"meta":{"symbol":"AAPL","regularMarketPrice":191.25,"exchangeTimezoneName":"America/New_York"},
"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{"close":[185.64,null,181.91]}]}}],"error":null}}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(applogger.Nop(), WithBaseURL(srv.URL), WithRateLimit(100, 10))
}

func TestClient_FetchSkipsMissingCloses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(chartBody))
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := c.Fetch(context.Background(), "AAPL", from, from.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-02", got[0].Date.Format("2006-01-02"))
	assert.Equal(t, 185.64, got[0].Close)
	assert.Equal(t, "2024-01-04", got[1].Date.Format("2006-01-02"))
}

func TestClient_CurrentPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
		_, _ = w.Write([]byte(chartBody))
	})

	p, err := c.CurrentPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 191.25, p)
}

func TestClient_ChartError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	})

	_, err := c.Fetch(context.Background(), "NOPE", time.Now().AddDate(0, 0, -3), time.Now())
	assert.Error(t, err)
	_, err = c.CurrentPrice(context.Background(), "NOPE")
	assert.Error(t, err)
}
