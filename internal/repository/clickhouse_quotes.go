package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

const quotesTable = "quotes"

// QuoteSchema creates the tick table daily series are built from.
var QuoteSchema = []string{
	`CREATE TABLE IF NOT EXISTS quotes (
		ts     DateTime64(3, 'UTC'),
		symbol LowCardinality(String),
		price  Float64,
		volume Float64,
		source LowCardinality(String)
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, ts)`,
}

// CHQuoteStore stores live trades and serves daily closes from them.
type CHQuoteStore struct {
	db        *sql.DB
	table     string
	chunkSize int
	l         *applogger.Logger
}

var (
	_ domrepo.QuoteStorage   = (*CHQuoteStore)(nil)
	_ domrepo.SeriesProvider = (*CHQuoteStore)(nil)
	_ domrepo.PriceLookup    = (*CHQuoteStore)(nil)
)

func NewCHQuoteStore(ch *pkgch.Client, l *applogger.Logger) *CHQuoteStore {
	return &CHQuoteStore{
		db:        ch.DB(),
		table:     quotesTable,
		chunkSize: ch.BatchSize(),
		l:         l.With(applogger.String("store", "clickhouse_quotes")),
	}
}

func (s *CHQuoteStore) StoreBatch(ctx context.Context, trades []*models.Trade) error {
	chunk := s.chunkSize
	if chunk <= 0 {
		chunk = 500
	}
	for start := 0; start < len(trades); start += chunk {
		end := start + chunk
		if end > len(trades) {
			end = len(trades)
		}
		q, args := buildQuoteInsert(s.table, trades[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert quotes: %w", err)
		}
	}
	return nil
}

// buildQuoteInsert renders a multi-row insert, skipping trades with no symbol or time.
func buildQuoteInsert(table string, trades []*models.Trade) (string, []interface{}) {
	values := make([]string, 0, len(trades))
	args := make([]interface{}, 0, len(trades)*5)
	for _, t := range trades {
		if t == nil || t.Symbol == "" || t.Timestamp.IsZero() {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, t.Timestamp.UTC(), t.Symbol, t.Price, t.Volume, "finnhub")
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, source) VALUES %s", table, strings.Join(values, ","))
	return q, args
}

// Fetch returns the last trade price of each UTC day in [from, to].
func (s *CHQuoteStore) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
		SELECT toDate(ts) AS day, argMax(price, ts) AS close
		FROM %s
		WHERE symbol = ? AND ts >= ? AND ts < ?
		GROUP BY day
		ORDER BY day ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC().AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("query daily closes: %w", err)
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 512)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("scan daily close: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("daily closes loaded",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func (s *CHQuoteStore) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	q := fmt.Sprintf("SELECT price FROM %s WHERE symbol = ? ORDER BY ts DESC LIMIT 1", s.table)
	var price float64
	if err := s.db.QueryRowContext(ctx, q, symbol).Scan(&price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("no quotes for %s", symbol)
		}
		return 0, fmt.Errorf("latest quote: %w", err)
	}
	return price, nil
}
