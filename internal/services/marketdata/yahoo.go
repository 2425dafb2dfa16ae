// Package marketdata fetches daily history and spot prices from the Yahoo chart API.
package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// Client implements SeriesProvider and PriceLookup.
type Client struct {
	baseURL string
	http    *xhttp.Client
	limiter *rate.Limiter
	l       *applogger.Logger
}

var (
	_ drepo.SeriesProvider = (*Client)(nil)
	_ drepo.PriceLookup    = (*Client)(nil)
)

// ClientOption configures the client
type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithRateLimit(requestsPerSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

func WithHTTPClient(hc *xhttp.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

func NewClient(l *applogger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(DefaultTimeout)),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		l:       l.With(applogger.String("client", "yahoo")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		ExchangeTimezone   string  `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *Client) chart(ctx context.Context, symbol string, query url.Values) (*chartResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	var resp chartResponse
	endpoint := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol)
	if err := c.http.GetJSON(ctx, endpoint, query, &resp); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s: %s", symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}
	return &resp.Chart.Result[0], nil
}

// Fetch returns daily closes in [from, to]. Sessions without a close are skipped.
func (c *Client) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")

	res, err := c.chart(ctx, symbol, q)
	if err != nil || res == nil {
		return nil, err
	}
	series := toSeries(res)
	c.l.Debug("history fetched", applogger.String("symbol", symbol), applogger.Int("points", len(series)))
	return series, nil
}

func toSeries(res *chartResult) []models.PricePoint {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	closes := res.Indicators.Quote[0].Close
	loc := time.UTC
	if res.Meta.ExchangeTimezone != "" {
		if tz, err := time.LoadLocation(res.Meta.ExchangeTimezone); err == nil {
			loc = tz
		}
	}
	out := make([]models.PricePoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		// session date in exchange time, stored as UTC midnight
		y, m, d := time.Unix(ts, 0).In(loc).Date()
		out = append(out, models.PricePoint{
			Date:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Close: *closes[i],
		})
	}
	return out
}

// CurrentPrice returns the regular market price from the chart metadata.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("range", "1d")
	q.Set("interval", "1d")
	res, err := c.chart(ctx, symbol, q)
	if err != nil {
		return 0, err
	}
	if res == nil || res.Meta.RegularMarketPrice <= 0 {
		return 0, fmt.Errorf("no market price for %s", symbol)
	}
	return res.Meta.RegularMarketPrice, nil
}
