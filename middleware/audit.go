package middleware

import (
	"case_relay_go/services"

	"github.com/labstack/echo/v4"
)

const ContextKeyAuditContext = "audit_context"

// AuditContext is middleware that extracts user info for audit logging.
// It must run after RequireAuth.
func AuditContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := services.AuditContextFromActor(GetActor(c))
			ctx.IPAddress = c.RealIP()
			ctx.UserAgent = c.Request().UserAgent()
			ctx.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
			if ctx.RequestID == "" {
				ctx.RequestID = c.Request().Header.Get(echo.HeaderXRequestID)
			}

			c.Set(ContextKeyAuditContext, ctx)
			return next(c)
		}
	}
}

// GetAuditContext retrieves the audit context from the request
func GetAuditContext(c echo.Context) services.AuditContext {
	if ctx, ok := c.Get(ContextKeyAuditContext).(services.AuditContext); ok {
		return ctx
	}
	return services.AuditContextFromActor(GetActor(c))
}
