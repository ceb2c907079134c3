package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/logger"
)

// RequestLogger puts a request-scoped logger into the request context and
// logs one line per request once the handler is done.  It must run after
// echo's RequestID middleware so the id is known.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = req.Header.Get(echo.HeaderXRequestID)
			}
			ctx := log.WithRequestID(req.Context(), rid)
			ctx = log.WithFields(ctx, map[string]any{"method": req.Method, "route": c.Path()})
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				// Let echo render the error so the final status is known.
				c.Error(err)
			}

			ctx = c.Request().Context()
			if id := UserID(c); id != "" {
				ctx = log.WithActor(ctx, id)
			}
			status := c.Response().Status
			ctx = log.WithFields(ctx, map[string]any{
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
			})
			switch {
			case status >= 500:
				log.Error(ctx, "request failed", err)
			case status >= 400:
				log.WarnErr(ctx, "request rejected", err)
			default:
				log.Info(ctx, "request completed")
			}
			return nil
		}
	}
}
