package api

import (
	"github.com/labstack/echo/v4"

	"FinCast/internal/service/ratelimit"
	xhttp "FinCast/pkg/http"
)

// rateLimited rejects clients that exhausted their bucket with 429.
func rateLimited(rl *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl != nil && !rl.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}
