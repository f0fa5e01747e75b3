package middleware

import (
	"strconv"
	"time"

	"case_relay_go/metrics"

	"github.com/labstack/echo/v4"
)

// RequestMetrics observes request duration labelled by route template, so
// /api/cases/1 and /api/cases/2 share a series
func RequestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo resolve the final status before it is recorded
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.RequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
