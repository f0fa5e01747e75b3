package handlers

import (
	"net/http"
	"strconv"
	"time"

	"case_relay_go/db"
	"case_relay_go/services"

	"github.com/labstack/echo/v4"
)

// GetAuditLogsHandler returns filtered and paginated audit logs. Admin only.
func GetAuditLogsHandler(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filters := services.AuditLogFilters{
		PoliceID:     c.QueryParam("police_id"),
		ResourceType: c.QueryParam("resource_type"),
		Action:       c.QueryParam("action"),
	}
	if dateFrom := c.QueryParam("date_from"); dateFrom != "" {
		t, err := time.Parse("2006-01-02", dateFrom)
		if err != nil {
			return badRequest(c, "date_from must be YYYY-MM-DD")
		}
		filters.DateFrom = t
	}
	if dateTo := c.QueryParam("date_to"); dateTo != "" {
		t, err := time.Parse("2006-01-02", dateTo)
		if err != nil {
			return badRequest(c, "date_to must be YYYY-MM-DD")
		}
		filters.DateTo = t.Add(24*time.Hour - time.Second) // End of day
	}

	logs, total, err := services.GetAuditLogs(db.DB.WithContext(c.Request().Context()), filters, page, pageSize)
	if err != nil {
		return respondError(c, err, "Failed to fetch audit logs")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"logs":     logs,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// GetResourceHistoryHandler returns the audit history for one resource
func GetResourceHistoryHandler(c echo.Context) error {
	logs, err := services.GetResourceAuditHistory(db.DB.WithContext(c.Request().Context()), c.Param("type"), c.Param("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch history")
	}
	return c.JSON(http.StatusOK, logs)
}
