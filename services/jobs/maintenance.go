package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"case_relay_go/config"
	"case_relay_go/models"
	"case_relay_go/services"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// StaleCaseAfter is how long an open case may go without an update before
// its officer is reminded
const StaleCaseAfter = 7 * 24 * time.Hour

// StartScheduler registers the maintenance jobs and starts the cron runner.
// The caller stops the returned runner on shutdown.
func StartScheduler(database *gorm.DB, cfg *config.Config) *cron.Cron {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc("@hourly", func() {
		if err := services.CleanupExpiredTokens(database); err != nil {
			log.Printf("[CRON] Error cleaning up expired tokens: %v", err)
		}
		if _, err := ReleaseExpiredLockouts(database, time.Now().UTC()); err != nil {
			log.Printf("[CRON] Error releasing expired lockouts: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("[CRON] Failed to schedule hourly maintenance: %v", err)
	}

	notifier := services.NewNotificationService(database, services.AsyncMailer(cfg), cfg.AppURL)
	_, err = c.AddFunc("0 7 * * *", func() {
		if _, err := SendStaleCaseReminders(context.Background(), database, notifier, time.Now().UTC()); err != nil {
			log.Printf("[CRON] Error sending stale case reminders: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("[CRON] Failed to schedule stale case reminders: %v", err)
	}

	c.Start()
	log.Println("[CRON] Scheduler started")
	return c
}

// ReleaseExpiredLockouts reactivates accounts whose lockout window has passed.
// Accounts deactivated without a lockout end stay inactive.
func ReleaseExpiredLockouts(database *gorm.DB, now time.Time) (int64, error) {
	result := database.Model(&models.User{}).
		Where("is_active = ? AND lockout_end IS NOT NULL AND lockout_end <= ?", false, now).
		Updates(map[string]interface{}{
			"is_active":             true,
			"failed_login_attempts": 0,
			"lockout_end":           nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to release lockouts: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("[CRON] Released %d expired lockouts", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// SendStaleCaseReminders notifies the assigned officer of every open case that
// crossed the staleness threshold in the last day. Running it once a day
// reminds each idle case once.
func SendStaleCaseReminders(ctx context.Context, database *gorm.DB, notifier services.Notifier, now time.Time) (int, error) {
	windowEnd := now.Add(-StaleCaseAfter)
	windowStart := windowEnd.Add(-24 * time.Hour)

	var cases []models.Case
	err := database.WithContext(ctx).
		Where("is_archived = ? AND status NOT IN ?", false, []models.CaseStatus{models.CaseStatusClosed, models.CaseStatusResolved}).
		Where("assigned_officer_id <> ?", models.UnassignedOfficerID).
		Where("updated_at > ? AND updated_at <= ?", windowStart, windowEnd).
		Order("id ASC").
		Find(&cases).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load stale cases: %w", err)
	}

	directory := services.NewOfficerDirectory(database)
	sent := 0
	for _, c := range cases {
		officer, err := directory.FindByPoliceID(ctx, c.AssignedOfficerID)
		if err != nil || officer == nil {
			log.Printf("[CRON] Skipping reminder for case %s: officer %s not resolved", c.CaseNumber, c.AssignedOfficerID)
			continue
		}
		caseID := c.ID
		err = notifier.Notify(ctx, officer.ID, "Case needs attention",
			fmt.Sprintf("Case %s (%s) has had no updates for %d days.", c.CaseNumber, c.Title, int(StaleCaseAfter.Hours()/24)),
			models.NotificationTypeSystem, &caseID)
		if err != nil {
			log.Printf("[CRON] Failed to remind %s about case %s: %v", officer.PoliceID, c.CaseNumber, err)
			continue
		}
		sent++
	}

	log.Printf("[CRON] Sent %d stale case reminders", sent)
	return sent, nil
}
