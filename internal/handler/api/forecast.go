package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/queue"
)

type ForecastGetter interface {
	GetForecast(ctx context.Context, symbol string, horizon int) (*models.Prediction, error)
}

// ForecastHandler serves single-symbol forecasts. Jobs is optional; without
// it the asynchronous endpoint is not registered.
type ForecastHandler struct {
	logger    *applogger.Logger
	forecasts ForecastGetter
	jobs      queue.Publisher
	rl        *ratelimit.Limiter
}

func NewForecastHandler(logger *applogger.Logger, forecasts ForecastGetter, jobs queue.Publisher, rl *ratelimit.Limiter) *ForecastHandler {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &ForecastHandler{logger: logger, forecasts: forecasts, jobs: jobs, rl: rl}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", rateLimited(h.rl))
	g.GET("/forecast", h.Forecast)
	if h.jobs != nil {
		g.POST("/forecast/jobs", h.EnqueueForecast)
	}
}

func (h *ForecastHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p, err := h.forecasts.GetForecast(c.Request().Context(), req.Symbol, req.Horizon)
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("forecast usecase error", applogger.String("symbol", req.Symbol), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, p)
}

// EnqueueForecast accepts a forecast job for background computation.
func (h *ForecastHandler) EnqueueForecast(c echo.Context) error {
	req := &models.ForecastJob{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id, err := h.jobs.Enqueue(c.Request().Context(), usecase.ForecastJobType, req)
	if err != nil {
		h.logger.Error("enqueue forecast job", applogger.String("symbol", req.Symbol), applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not queue the forecast").WithError(err))
	}
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"job_id": id})
}
