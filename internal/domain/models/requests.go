package models

// Requests for the HTTP API. Horizon bounds are re-checked against config in the usecase.

type ForecastRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required,ticker"`
	Horizon int    `query:"horizon" json:"horizon" default:"30" validate:"gte=1,lte=365"`
}

type PortfolioRequest struct {
	PortfolioID string `param:"id" validate:"required"`
}

type HoldingsForecastRequest struct {
	PortfolioID string `param:"id" validate:"required"`
	Horizon     int    `query:"horizon" default:"30" validate:"gte=1,lte=365"`
}

type AssetForecastRequest struct {
	PortfolioID string `param:"id" validate:"required"`
	Symbol      string `param:"symbol" validate:"required,ticker"`
	Horizon     int    `query:"horizon" default:"30" validate:"gte=1,lte=365"`
}
