package services

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"path"
	"strings"
	texttemplate "text/template"
	"time"

	"case_relay_go/config"
	"case_relay_go/metrics"
	"case_relay_go/templates"

	"github.com/resend/resend-go/v2"
)

// EmailTemplates is where email bodies are read from
var EmailTemplates fs.FS = templates.Emails

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// loadTemplate renders emails/<name>.html and emails/<name>.txt
func loadTemplate(templateName string, data interface{}) (htmlBody string, textBody string, err error) {
	htmlPath := path.Join("emails", templateName+".html")
	content, err := fs.ReadFile(EmailTemplates, htmlPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read template %s: %w", htmlPath, err)
	}
	htmlTmpl, err := template.New(templateName).Parse(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", htmlPath, err)
	}
	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", htmlPath, err)
	}

	textPath := path.Join("emails", templateName+".txt")
	content, err = fs.ReadFile(EmailTemplates, textPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read template %s: %w", textPath, err)
	}
	textTmpl, err := texttemplate.New(templateName).Parse(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", textPath, err)
	}
	var textBuf bytes.Buffer
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", textPath, err)
	}

	return htmlBuf.String(), textBuf.String(), nil
}

// buildEmail renders a template, falling back to a plain text body when it is missing
func buildEmail(templateName string, data interface{}, toEmail, subject, fallbackText string) *Email {
	htmlBody, textBody, err := loadTemplate(templateName, data)
	if err != nil {
		log.Printf("Error loading %s email template: %v", templateName, err)
		htmlBody, textBody = "", fallbackText
	}
	return &Email{
		To:       []string{toEmail},
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		metrics.EmailsSent.WithLabelValues("logged").Inc()
		return nil
	}

	if cfg.ResendAPIKey == "" {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	if params.Html == "" && params.Text == "" {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	sent, err := client.Emails.Send(params)
	if err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	metrics.EmailsSent.WithLabelValues("sent").Inc()
	log.Printf("Email sent successfully via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details to console in development mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (Development Mode - Not Actually Sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

// SendEmailAsync sends an email in a goroutine so handlers never wait on delivery
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	go func(cfg *config.Config, email *Email) {
		if err := SendEmail(cfg, email); err != nil {
			log.Printf("Error sending async email: %v", err)
		}
	}(cfg, emailCopy)
}

// WelcomeEmailData contains data for the welcome email template
type WelcomeEmailData struct {
	UserName string
	PoliceID string
}

// BuildWelcomeEmail greets a self-registered officer
func BuildWelcomeEmail(userEmail, userName, policeID string) *Email {
	return buildEmail("welcome", WelcomeEmailData{UserName: userName, PoliceID: policeID}, userEmail,
		"Welcome to CaseRelay",
		fmt.Sprintf("Hello %s,\n\nYour CaseRelay account %s is ready.", userName, policeID))
}

// AccountCreatedEmailData contains data for the account created email template
type AccountCreatedEmailData struct {
	UserName          string
	PoliceID          string
	TemporaryPasscode string
	LoginURL          string
}

// BuildAccountCreatedEmail sends the temporary passcode for an account created by an admin
func BuildAccountCreatedEmail(userEmail, userName, policeID, passcode, loginURL string) *Email {
	data := AccountCreatedEmailData{
		UserName:          userName,
		PoliceID:          policeID,
		TemporaryPasscode: passcode,
		LoginURL:          loginURL,
	}
	return buildEmail("account_created", data, userEmail,
		"Your CaseRelay account",
		fmt.Sprintf("Hello %s,\n\nPolice ID: %s\nTemporary passcode: %s\n\nYou must change it at first login: %s",
			userName, policeID, passcode, loginURL))
}

// AccountLockedEmailData contains data for the account locked email template
type AccountLockedEmailData struct {
	UserName       string
	LockoutMinutes int
}

// BuildAccountLockedEmail warns an officer that repeated failures locked the account
func BuildAccountLockedEmail(userEmail, userName string, lockoutMinutes int) *Email {
	return buildEmail("account_locked", AccountLockedEmailData{UserName: userName, LockoutMinutes: lockoutMinutes}, userEmail,
		"Your CaseRelay account has been locked",
		fmt.Sprintf("Hello %s,\n\nYour account was locked after too many failed login attempts. Try again in %d minutes.",
			userName, lockoutMinutes))
}

// BuildAccountUnlockedEmail tells an officer the account can be used again
func BuildAccountUnlockedEmail(userEmail, userName string) *Email {
	return buildEmail("account_unlocked", WelcomeEmailData{UserName: userName}, userEmail,
		"Your CaseRelay account has been unlocked",
		fmt.Sprintf("Hello %s,\n\nYour account has been unlocked.", userName))
}

// BuildPasscodeChangedEmail confirms a passcode change
func BuildPasscodeChangedEmail(userEmail, userName string) *Email {
	return buildEmail("passcode_changed", WelcomeEmailData{UserName: userName}, userEmail,
		"Your CaseRelay passcode was changed",
		fmt.Sprintf("Hello %s,\n\nYour passcode was changed. Contact an administrator if this was not you.", userName))
}

// BuildAccountDeletedEmail informs a removed officer
func BuildAccountDeletedEmail(userEmail, userName string) *Email {
	return buildEmail("account_deleted", WelcomeEmailData{UserName: userName}, userEmail,
		"Your CaseRelay account was removed",
		fmt.Sprintf("Hello %s,\n\nYour account was removed and your cases were returned to the unassigned queue.", userName))
}

// PasswordResetEmailData contains data for the password reset email template
type PasswordResetEmailData struct {
	UserName  string
	ResetLink string
	ExpiresAt string
}

// BuildPasswordResetEmail creates a password reset email with reset link
func BuildPasswordResetEmail(userEmail, userName, resetLink string, expiresAt time.Time) *Email {
	data := PasswordResetEmailData{
		UserName:  userName,
		ResetLink: resetLink,
		ExpiresAt: expiresAt.UTC().Format("2006-01-02 15:04 MST"),
	}
	return buildEmail("password_reset", data, userEmail,
		"Reset your CaseRelay passcode",
		fmt.Sprintf("Hello %s,\n\nReset your passcode here: %s\nThe link expires at %s.", userName, resetLink, data.ExpiresAt))
}

// NotificationEmailData contains data for the notification email template
type NotificationEmailData struct {
	UserName string
	Title    string
	Message  string
	CaseURL  string
}

// BuildNotificationEmail mirrors an in-app notification
func BuildNotificationEmail(userEmail, userName, title, message, caseURL string) *Email {
	data := NotificationEmailData{UserName: userName, Title: title, Message: message, CaseURL: caseURL}
	return buildEmail("notification", data, userEmail, title,
		fmt.Sprintf("Hello %s,\n\n%s\n\n%s", userName, title, message))
}
