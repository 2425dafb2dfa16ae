package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	"FinCast/internal/service/ratelimit"
	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
)

type PortfolioAnalyzer interface {
	Analyze(ctx context.Context, portfolioID string) (*models.PortfolioAnalysis, error)
}

type HoldingsForecaster interface {
	ForecastHoldings(ctx context.Context, portfolioID string, horizon int) (map[string]models.HoldingForecast, error)
	ForecastAsset(ctx context.Context, portfolioID, symbol string, horizon int) (*models.Prediction, error)
}

// PortfolioHandler serves valuation and holdings forecasts for stored portfolios.
type PortfolioHandler struct {
	logger   *applogger.Logger
	analyzer PortfolioAnalyzer
	holdings HoldingsForecaster
	rl       *ratelimit.Limiter
}

func NewPortfolioHandler(logger *applogger.Logger, analyzer PortfolioAnalyzer, holdings HoldingsForecaster, rl *ratelimit.Limiter) *PortfolioHandler {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &PortfolioHandler{logger: logger, analyzer: analyzer, holdings: holdings, rl: rl}
}

func (h *PortfolioHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/portfolios", rateLimited(h.rl))
	g.GET("/:id/analysis", h.Analysis)
	g.GET("/:id/forecasts", h.HoldingsForecast)
	g.GET("/:id/forecasts/:symbol", h.AssetForecast)
}

func (h *PortfolioHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" usecase error", applogger.String("portfolio_id", c.Param("id")), applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *PortfolioHandler) Analysis(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analyzer.Analyze(c.Request().Context(), req.PortfolioID)
	if err != nil {
		return h.fail(c, "analysis", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PortfolioHandler) HoldingsForecast(c echo.Context) error {
	req := &models.HoldingsForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.holdings.ForecastHoldings(c.Request().Context(), req.PortfolioID, req.Horizon)
	if err != nil {
		return h.fail(c, "holdings forecast", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PortfolioHandler) AssetForecast(c echo.Context) error {
	req := &models.AssetForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.holdings.ForecastAsset(c.Request().Context(), req.PortfolioID, req.Symbol, req.Horizon)
	if err != nil {
		return h.fail(c, "asset forecast", err)
	}
	return xhttp.SuccessResponse(c, res)
}
