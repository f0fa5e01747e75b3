package middleware

import (
	"errors"
	"net/http"
	"strings"

	"case_relay_go/models"
	"case_relay_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// ContextKeyUser is the context key for the authenticated user
const ContextKeyUser = "user"

// RequireAuth verifies the bearer token and loads the officer behind it.
// Deleted or locked accounts are refused even while their token is valid.
func RequireAuth(tc services.TokenConfig, conn *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing bearer token")
			}

			claims, err := services.ParseToken(tc, strings.TrimSpace(tokenStr))
			if err != nil {
				services.LogSecurityEvent("TOKEN_REJECTED", "", err.Error())
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			user, err := services.NewUserService(conn).GetByPoliceID(c.Request().Context(), claims.Subject)
			if errors.Is(err, services.ErrNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Account no longer exists")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load account")
			}
			if !user.IsActive {
				return echo.NewHTTPError(http.StatusUnauthorized, "Account is locked")
			}

			c.Set(ContextKeyUser, user)
			return next(c)
		}
	}
}

// RequireRole is middleware that requires specific roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetCurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}

			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

// RequireAdmin is RequireRole for administrators
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(models.RoleAdmin)
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetActor returns the authenticated officer as a service actor
func GetActor(c echo.Context) services.Actor {
	return services.ActorFromUser(GetCurrentUser(c))
}
