package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"case_relay_go/metrics"
	"case_relay_go/models"
)

// Dispatcher runs the side effects of committed operations. Failures are
// logged and counted, never returned.
type Dispatcher struct {
	Notifier Notifier
	Officers OfficerDirectory
	Mailer   Mailer
	AppURL   string
}

func NewDispatcher(notifier Notifier, officers OfficerDirectory, mailer Mailer, appURL string) *Dispatcher {
	return &Dispatcher{Notifier: notifier, Officers: officers, Mailer: mailer, AppURL: appURL}
}

// Dispatch handles every event in order
func (d *Dispatcher) Dispatch(ctx context.Context, events ...Event) {
	for _, event := range events {
		metrics.EventsDispatched.WithLabelValues(event.EventName()).Inc()
		if err := d.handle(ctx, event); err != nil {
			metrics.DispatchFailures.WithLabelValues(event.EventName()).Inc()
			log.Printf("[DISPATCH] %s failed: %v", event.EventName(), err)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, event Event) error {
	switch e := event.(type) {
	case CaseCreated:
		if e.AssignedOfficerID == e.Actor.PoliceID {
			return nil
		}
		return d.notifyOfficers(ctx, &e.CaseID, "New case assigned",
			fmt.Sprintf("Case %s (%s) has been assigned to you.", e.CaseNumber, e.Title),
			e.AssignedOfficerID)

	case CaseApproved:
		return d.notifyCaseParties(ctx, e.CaseID, e.CreatedBy, e.AssignedOfficerID, "Case approved",
			fmt.Sprintf("Case %s was approved by %s.", e.CaseNumber, actorLabel(e.Actor)))

	case CaseStatusChanged:
		return d.notifyCaseParties(ctx, e.CaseID, e.CreatedBy, e.AssignedOfficerID, "Case status updated",
			fmt.Sprintf("Case %s changed from %s to %s.", e.CaseNumber, e.From, e.To))

	case CaseAssigned:
		return d.notifyOfficers(ctx, &e.Change.CaseID, "Case assigned",
			fmt.Sprintf("Case %s has been assigned to you by %s.", e.Change.CaseNumber, actorLabel(e.Change.Actor)),
			e.Change.To)

	case CaseHandedOver:
		c := e.Change
		toErr := d.notifyOfficers(ctx, &c.CaseID, "Case handed over to you",
			fmt.Sprintf("Case %s was handed over to you from officer %s.", c.CaseNumber, c.From), c.To)
		fromErr := d.notifyOfficers(ctx, &c.CaseID, "Case handed over",
			fmt.Sprintf("Case %s was handed over from you to officer %s.", c.CaseNumber, c.To), c.From)
		return errors.Join(toErr, fromErr)

	case CommentAdded:
		if e.AssignedOfficerID == e.Actor.PoliceID {
			return nil
		}
		return d.notifyOfficers(ctx, &e.CaseID, "New comment",
			fmt.Sprintf("%s commented on case %s.", actorLabel(e.Actor), e.CaseNumber), e.AssignedOfficerID)

	case DocumentAdded:
		if e.AssignedOfficerID == e.Actor.PoliceID {
			return nil
		}
		return d.notifyOfficers(ctx, &e.CaseID, "New document",
			fmt.Sprintf("%s uploaded %s to case %s.", actorLabel(e.Actor), e.FileName, e.CaseNumber), e.AssignedOfficerID)

	case UserProfileUpdated:
		if e.UserID == e.Actor.UserID {
			return nil
		}
		return d.Notifier.Notify(ctx, e.UserID, "Profile updated",
			fmt.Sprintf("Your profile was updated by %s.", actorLabel(e.Actor)), models.NotificationTypeAdmin, nil)

	case UserRoleChanged:
		return d.Notifier.Notify(ctx, e.UserID, "Role changed",
			fmt.Sprintf("Your role is now %s.", e.Role), models.NotificationTypeAdmin, nil)

	case UserDeleted:
		return d.mail(BuildAccountDeletedEmail(e.Email, e.FirstName))

	case UserRegistered:
		if e.TemporaryPasscode != "" {
			return d.mail(BuildAccountCreatedEmail(e.Email, e.FirstName, e.PoliceID, e.TemporaryPasscode, strings.TrimSuffix(d.AppURL, "/")+"/login"))
		}
		return d.mail(BuildWelcomeEmail(e.Email, e.FirstName, e.PoliceID))

	case AccountLocked:
		return d.mail(BuildAccountLockedEmail(e.Email, e.FirstName, e.LockoutMinutes))

	case AccountUnlocked:
		return d.mail(BuildAccountUnlockedEmail(e.Email, e.FirstName))

	case PasscodeChanged:
		return d.mail(BuildPasscodeChangedEmail(e.Email, e.FirstName))

	case PasswordResetRequested:
		return d.mail(BuildPasswordResetEmail(e.Email, e.FirstName, e.ResetLink, e.ExpiresAt))
	}
	return fmt.Errorf("no handler for event %s", event.EventName())
}

// notifyOfficers notifies each officer that resolves by police id. A failed
// recipient does not stop the rest.
func (d *Dispatcher) notifyOfficers(ctx context.Context, caseID *uint, title, message string, policeIDs ...string) error {
	var errs []error
	seen := make(map[uint]bool)
	for _, policeID := range policeIDs {
		if policeID == "" || policeID == models.UnassignedOfficerID {
			continue
		}
		officer, err := d.Officers.FindByPoliceID(ctx, policeID)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve officer %s: %w", policeID, err))
			continue
		}
		if officer == nil || seen[officer.ID] {
			continue
		}
		seen[officer.ID] = true
		if err := d.Notifier.Notify(ctx, officer.ID, title, message, models.NotificationTypeCase, caseID); err != nil {
			errs = append(errs, fmt.Errorf("notify officer %s: %w", policeID, err))
		}
	}
	return errors.Join(errs...)
}

// notifyCaseParties notifies the creator and the assigned officer once each
func (d *Dispatcher) notifyCaseParties(ctx context.Context, caseID, createdBy uint, assignedOfficerID, title, message string) error {
	var creatorID uint
	if createdBy != 0 {
		creator, err := d.Officers.FindByUserID(ctx, createdBy)
		if err != nil {
			return err
		}
		if creator != nil {
			creatorID = creator.ID
			if err := d.Notifier.Notify(ctx, creator.ID, title, message, models.NotificationTypeCase, &caseID); err != nil {
				return err
			}
		}
	}

	if assignedOfficerID == "" || assignedOfficerID == models.UnassignedOfficerID {
		return nil
	}
	officer, err := d.Officers.FindByPoliceID(ctx, assignedOfficerID)
	if err != nil {
		return err
	}
	if officer == nil || officer.ID == creatorID {
		return nil
	}
	return d.Notifier.Notify(ctx, officer.ID, title, message, models.NotificationTypeCase, &caseID)
}

func (d *Dispatcher) mail(email *Email) error {
	if d.Mailer == nil {
		return fmt.Errorf("no mailer configured")
	}
	if len(email.To) == 0 || email.To[0] == "" {
		return fmt.Errorf("email %q has no recipient", email.Subject)
	}
	d.Mailer(email)
	return nil
}

func actorLabel(a Actor) string {
	if a.Name != "" {
		return a.Name
	}
	if a.PoliceID != "" {
		return a.PoliceID
	}
	return "CaseRelay"
}
