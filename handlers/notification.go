package handlers

import (
	"net/http"

	"case_relay_go/db"
	"case_relay_go/middleware"
	"case_relay_go/services"

	"github.com/labstack/echo/v4"
)

func newNotificationService(c echo.Context) *services.NotificationService {
	cfg := getConfig(c)
	return services.NewNotificationService(db.DB, services.AsyncMailer(cfg), cfg.AppURL)
}

// GetNotificationsHandler lists the caller's notifications with the unread count
func GetNotificationsHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	ctx := c.Request().Context()
	service := newNotificationService(c)

	notifications, err := service.ListForUser(ctx, user.ID)
	if err != nil {
		return respondError(c, err, "Failed to load notifications")
	}
	unread, err := service.UnreadCount(ctx, user.ID)
	if err != nil {
		return respondError(c, err, "Failed to load notifications")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

func MarkNotificationReadHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	notificationID, ok := parseUintParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid notification ID")
	}

	if err := newNotificationService(c).MarkAsRead(c.Request().Context(), notificationID, user.ID); err != nil {
		return respondError(c, err, "Error marking as read")
	}
	return respondMessage(c, http.StatusOK, "Notification marked as read")
}

func MarkAllNotificationsReadHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if err := newNotificationService(c).MarkAllAsRead(c.Request().Context(), user.ID); err != nil {
		return respondError(c, err, "Error marking all as read")
	}
	return respondMessage(c, http.StatusOK, "All notifications marked as read")
}

func DeleteNotificationHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	notificationID, ok := parseUintParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid notification ID")
	}

	if err := newNotificationService(c).Delete(c.Request().Context(), notificationID, user.ID); err != nil {
		return respondError(c, err, "Error deleting notification")
	}
	return respondMessage(c, http.StatusOK, "Notification deleted")
}
