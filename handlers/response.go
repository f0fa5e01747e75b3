package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"case_relay_go/config"
	"case_relay_go/db"
	"case_relay_go/services"

	"github.com/labstack/echo/v4"
)

// Context keys set by the server for every request
const (
	ContextKeyConfig  = "config"
	ContextKeyStorage = "storage"
)

// statusFor maps a service failure kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"message": reason}. Unclassified errors are logged and
// answered with the fallback text.
func respondError(c echo.Context, err error, fallback string) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, map[string]interface{}{
		"message": services.Reason(err, fallback),
	})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]interface{}{"message": message})
}

func respondData(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"message": message,
		"data":    data,
	})
}

func badRequest(c echo.Context, message string) error {
	return respondMessage(c, http.StatusBadRequest, message)
}

// parseUintParam reads a numeric path parameter
func parseUintParam(c echo.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}

func getConfig(c echo.Context) *config.Config {
	if cfg, ok := c.Get(ContextKeyConfig).(*config.Config); ok {
		return cfg
	}
	return &config.Config{EmailTestMode: true}
}

func getStorage(c echo.Context) services.StorageProvider {
	if storage, ok := c.Get(ContextKeyStorage).(services.StorageProvider); ok {
		return storage
	}
	return nil
}

func newCaseService() *services.CaseService {
	return services.NewCaseService(db.DB, services.NewOfficerDirectory(db.DB))
}

// newDispatcher wires notifications and email for the request's config
func newDispatcher(c echo.Context) *services.Dispatcher {
	cfg := getConfig(c)
	mailer := services.AsyncMailer(cfg)
	notifier := services.NewNotificationService(db.DB, mailer, cfg.AppURL)
	return services.NewDispatcher(notifier, services.NewOfficerDirectory(db.DB), mailer, cfg.AppURL)
}

// dispatch runs the side effects of a committed operation
func dispatch(c echo.Context, events []services.Event) {
	if len(events) == 0 {
		return
	}
	newDispatcher(c).Dispatch(c.Request().Context(), events...)
}
