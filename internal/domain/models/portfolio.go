package models

import "time"

type Portfolio struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// Asset is a holding linked to a portfolio.
type Asset struct {
	ID          string `json:"id"`
	PortfolioID string `json:"portfolio_id"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
}

type Transaction struct {
	ID            string    `json:"id"`
	PortfolioID   string    `json:"portfolio_id"`
	AssetID       string    `json:"asset_id"`
	Type          string    `json:"transaction_type"`
	Shares        float64   `json:"shares"`
	PricePerShare float64   `json:"price_per_share"`
	Fees          float64   `json:"fees"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

// Position is derived per analysis request and never stored.
type Position struct {
	Asset        Asset   `json:"asset"`
	Quantity     float64 `json:"quantity"`
	AverageCost  float64 `json:"average_cost"`
	CurrentPrice float64 `json:"current_price"`
	CurrentValue float64 `json:"current_value"`
	Weight       float64 `json:"weight"`
}

type PortfolioAnalysis struct {
	PortfolioID string     `json:"portfolio_id"`
	TotalValue  float64    `json:"total_value"`
	Positions   []Position `json:"positions"`
}
