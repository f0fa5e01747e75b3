package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"case_relay_go/config"
	"case_relay_go/models"

	"gorm.io/gorm"
)

// Mailer delivers an email without blocking the caller
type Mailer func(email *Email)

// AsyncMailer sends through Resend (or the console in test mode) in a goroutine
func AsyncMailer(cfg *config.Config) Mailer {
	return func(email *Email) {
		SendEmailAsync(cfg, email)
	}
}

// Notifier records an in-app notification for a user
type Notifier interface {
	Notify(ctx context.Context, userID uint, title, message, notificationType string, relatedCaseID *uint) error
}

type NotificationService struct {
	DB     *gorm.DB
	Mailer Mailer
	AppURL string
}

func NewNotificationService(db *gorm.DB, mailer Mailer, appURL string) *NotificationService {
	return &NotificationService{DB: db, Mailer: mailer, AppURL: appURL}
}

// Notify persists a notification and mirrors it to the user's email
func (s *NotificationService) Notify(ctx context.Context, userID uint, title, message, notificationType string, relatedCaseID *uint) error {
	notification := &models.Notification{
		UserID:        userID,
		Type:          notificationType,
		Title:         title,
		Message:       message,
		RelatedCaseID: relatedCaseID,
	}
	if err := s.Create(ctx, notification); err != nil {
		return err
	}

	if s.Mailer == nil {
		return nil
	}
	var user models.User
	if err := s.DB.WithContext(ctx).Select("id", "email", "first_name").First(&user, userID).Error; err != nil {
		return fmt.Errorf("failed to load notification recipient %d: %w", userID, err)
	}
	caseURL := ""
	if relatedCaseID != nil && s.AppURL != "" {
		caseURL = fmt.Sprintf("%s/cases/%d", strings.TrimSuffix(s.AppURL, "/"), *relatedCaseID)
	}
	s.Mailer(BuildNotificationEmail(user.Email, user.FirstName, notification.Title, notification.Message, caseURL))
	return nil
}

// Create stores a notification with markup stripped from its text
func (s *NotificationService) Create(ctx context.Context, notification *models.Notification) error {
	notification.Title = SanitizePlainText(notification.Title)
	notification.Message = SanitizePlainText(notification.Message)
	if notification.Title == "" {
		return validationFailure("Notification title is required")
	}
	if notification.Type == "" {
		notification.Type = models.NotificationTypeSystem
	}
	if err := s.DB.WithContext(ctx).Create(notification).Error; err != nil {
		return persistenceFailure(err, "Failed to create notification")
	}
	return nil
}

// ListForUser returns the user's notifications, newest first
func (s *NotificationService) ListForUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, persistenceFailure(err, "Failed to load notifications")
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, persistenceFailure(err, "Failed to count notifications")
	}
	return count, nil
}

// MarkAsRead flags one of the user's notifications as read
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID uint) error {
	var notification models.Notification
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("Notification %d not found", notificationID)
	}
	if err != nil {
		return persistenceFailure(err, "Failed to load notification")
	}
	if err := s.DB.WithContext(ctx).Model(&notification).Update("is_read", true).Error; err != nil {
		return persistenceFailure(err, "Failed to mark notification as read")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint) error {
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
	if err != nil {
		return persistenceFailure(err, "Failed to mark notifications as read")
	}
	return nil
}

// Delete removes one of the user's notifications
func (s *NotificationService) Delete(ctx context.Context, notificationID, userID uint) error {
	result := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return persistenceFailure(result.Error, "Failed to delete notification")
	}
	if result.RowsAffected == 0 {
		return notFound("Notification %d not found", notificationID)
	}
	log.Printf("Notification %d deleted by user %d", notificationID, userID)
	return nil
}
