package api

import (
	"context"
	"errors"

	"FinCast/internal/domain/models"
	xhttp "FinCast/pkg/http"
)

// toAppError maps domain failures onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var ce *models.ComputationError
	switch {
	case errors.Is(err, models.ErrPortfolioNotFound):
		return xhttp.NotFoundError("portfolio not found").WithError(err)
	case errors.Is(err, models.ErrAssetNotInPortfolio):
		return xhttp.NotFoundError("asset not found in the portfolio").WithError(err)
	case errors.Is(err, models.ErrInvalidHorizon), errors.Is(err, models.ErrInvalidSymbol):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrForecastTimeout), errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError("forecast did not finish in time").WithError(err)
	case errors.Is(err, models.ErrNoHistoricalData):
		return xhttp.NotFoundError("no historical data for symbol").WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", err.Error()).WithError(err)
	case errors.Is(err, models.ErrNoHoldings):
		return xhttp.UnprocessableError("ERR_NO_HOLDINGS", err.Error()).WithError(err)
	case errors.Is(err, models.ErrNoTransactions):
		return xhttp.UnprocessableError("ERR_NO_TRANSACTIONS", err.Error()).WithError(err)
	case errors.Is(err, models.ErrZeroValuation):
		return xhttp.UnprocessableError("ERR_ZERO_VALUATION", err.Error()).WithError(err)
	case errors.As(err, &ce):
		return xhttp.InternalError("forecast computation failed").
			WithParam("symbol", ce.Symbol).
			WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
