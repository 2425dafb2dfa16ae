package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
)

// SQLitePortfolioStore keeps portfolios, assets and transactions in one SQLite file.
type SQLitePortfolioStore struct {
	db *sql.DB
}

var (
	_ domrepo.PortfolioStore   = (*SQLitePortfolioStore)(nil)
	_ domrepo.AssetStore       = (*SQLitePortfolioStore)(nil)
	_ domrepo.TransactionStore = (*SQLitePortfolioStore)(nil)
)

// NewSQLitePortfolioStore opens (or creates) the database and runs migrations.
func NewSQLitePortfolioStore(path string) (*SQLitePortfolioStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLitePortfolioStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLitePortfolioStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS portfolios (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL DEFAULT '',
			name       TEXT NOT NULL DEFAULT '',
			currency   TEXT NOT NULL DEFAULT 'USD',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id           TEXT PRIMARY KEY,
			portfolio_id TEXT NOT NULL REFERENCES portfolios(id),
			symbol       TEXT NOT NULL,
			name         TEXT NOT NULL DEFAULT '',
			currency     TEXT NOT NULL DEFAULT 'USD'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assets_portfolio ON assets(portfolio_id)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id               TEXT PRIMARY KEY,
			portfolio_id     TEXT NOT NULL REFERENCES portfolios(id),
			asset_id         TEXT NOT NULL REFERENCES assets(id),
			transaction_type TEXT NOT NULL,
			shares           REAL NOT NULL,
			price_per_share  REAL NOT NULL,
			fees             REAL NOT NULL DEFAULT 0,
			currency         TEXT NOT NULL DEFAULT 'USD',
			created_at       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_portfolio ON transactions(portfolio_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLitePortfolioStore) Close() error {
	return s.db.Close()
}

func (s *SQLitePortfolioStore) Portfolio(ctx context.Context, portfolioID string) (*models.Portfolio, error) {
	var p models.Portfolio
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, currency FROM portfolios WHERE id = ?`, portfolioID).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select portfolio: %w", err)
	}
	return &p, nil
}

func (s *SQLitePortfolioStore) AssetsByPortfolio(ctx context.Context, portfolioID string) ([]models.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, portfolio_id, symbol, name, currency FROM assets WHERE portfolio_id = ? ORDER BY rowid`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("select assets: %w", err)
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.PortfolioID, &a.Symbol, &a.Name, &a.Currency); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLitePortfolioStore) TransactionsByPortfolio(ctx context.Context, portfolioID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, portfolio_id, asset_id, transaction_type, shares, price_per_share, fees, currency, created_at
		FROM transactions WHERE portfolio_id = ? ORDER BY created_at, rowid`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var (
			t       models.Transaction
			created int64
		)
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.AssetID, &t.Type, &t.Shares,
			&t.PricePerShare, &t.Fees, &t.Currency, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreatePortfolio inserts p, assigning an ID when empty.
func (s *SQLitePortfolioStore) CreatePortfolio(ctx context.Context, p *models.Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO portfolios (id, user_id, name, currency, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Currency, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert portfolio: %w", err)
	}
	return nil
}

// AddAsset inserts a, assigning an ID when empty.
func (s *SQLitePortfolioStore) AddAsset(ctx context.Context, a *models.Asset) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Currency == "" {
		a.Currency = "USD"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (id, portfolio_id, symbol, name, currency) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.PortfolioID, a.Symbol, a.Name, a.Currency)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// AddTransaction inserts t, assigning an ID and timestamp when empty.
func (s *SQLitePortfolioStore) AddTransaction(ctx context.Context, t *models.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Currency == "" {
		t.Currency = "USD"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, portfolio_id, asset_id, transaction_type, shares, price_per_share, fees, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PortfolioID, t.AssetID, t.Type, t.Shares, t.PricePerShare, t.Fees, t.Currency, t.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
