package services

import (
	"testing"
	"testing/fstest"
	"time"

	"case_relay_go/config"

	"github.com/stretchr/testify/assert"
)

func withEmailTemplates(t *testing.T, fsys fstest.MapFS) {
	original := EmailTemplates
	EmailTemplates = fsys
	t.Cleanup(func() { EmailTemplates = original })
}

func TestLoadTemplate(t *testing.T) {
	withEmailTemplates(t, fstest.MapFS{
		"emails/greeting.html": {Data: []byte("<p>Hello {{.UserName}}</p>")},
		"emails/greeting.txt":  {Data: []byte("Hello {{.UserName}} & co")},
		"emails/broken.html":   {Data: []byte("{{.UserName")},
		"emails/broken.txt":    {Data: []byte("x")},
	})

	t.Run("Renders html and text", func(t *testing.T) {
		html, text, err := loadTemplate("greeting", WelcomeEmailData{UserName: "<Jane>"})
		assert.NoError(t, err)
		assert.Equal(t, "<p>Hello &lt;Jane&gt;</p>", html)
		assert.Equal(t, "Hello <Jane> & co", text)
	})

	t.Run("Template not found", func(t *testing.T) {
		_, _, err := loadTemplate("missing", nil)
		assert.Error(t, err)
	})

	t.Run("Parse error", func(t *testing.T) {
		_, _, err := loadTemplate("broken", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse template")
	})
}

func TestBuildEmailFallback(t *testing.T) {
	withEmailTemplates(t, fstest.MapFS{})

	email := BuildAccountLockedEmail("officer@caserelay.com", "Jane", 30)
	assert.Equal(t, []string{"officer@caserelay.com"}, email.To)
	assert.Equal(t, "Your CaseRelay account has been locked", email.Subject)
	assert.Empty(t, email.HTMLBody)
	assert.Contains(t, email.TextBody, "30 minutes")
}

func TestEmbeddedTemplates(t *testing.T) {
	t.Run("Account created", func(t *testing.T) {
		email := BuildAccountCreatedEmail("new@caserelay.com", "Sam", "P1234", "Tmp#Pass1", "http://localhost/login")
		assert.Contains(t, email.HTMLBody, "P1234")
		assert.Contains(t, email.TextBody, "Tmp#Pass1")
		assert.Contains(t, email.TextBody, "http://localhost/login")
	})

	t.Run("Password reset", func(t *testing.T) {
		expires := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
		email := BuildPasswordResetEmail("a@caserelay.com", "Ann", "http://localhost/reset?token=abc", expires)
		assert.Equal(t, "Reset your CaseRelay passcode", email.Subject)
		assert.Contains(t, email.TextBody, "2026-03-01 10:30 UTC")
		assert.Contains(t, email.TextBody, "token=abc")
	})

	t.Run("Notification without case link", func(t *testing.T) {
		email := BuildNotificationEmail("a@caserelay.com", "Ann", "Case approved", "CR-1 was approved", "")
		assert.Equal(t, "Case approved", email.Subject)
		assert.Contains(t, email.TextBody, "CR-1 was approved")
		assert.NotContains(t, email.TextBody, "Open case")
	})

	for name, email := range map[string]*Email{
		"welcome":          BuildWelcomeEmail("a@caserelay.com", "Ann", "P1"),
		"account_unlocked": BuildAccountUnlockedEmail("a@caserelay.com", "Ann"),
		"passcode_changed": BuildPasscodeChangedEmail("a@caserelay.com", "Ann"),
		"account_deleted":  BuildAccountDeletedEmail("a@caserelay.com", "Ann"),
		"account_locked":   BuildAccountLockedEmail("a@caserelay.com", "Ann", 30),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, email.HTMLBody, "Hello Ann")
			assert.Contains(t, email.TextBody, "Hello Ann")
		})
	}
}

func TestSendEmail_TestMode(t *testing.T) {
	cfg := &config.Config{EmailTestMode: true}
	email := &Email{To: []string{"test@example.com"}, Subject: "Test", HTMLBody: "Body"}
	assert.NoError(t, SendEmail(cfg, email))
}

func TestSendEmail_NoApiKey(t *testing.T) {
	cfg := &config.Config{EmailTestMode: false}
	email := &Email{To: []string{"test@example.com"}, Subject: "Test", HTMLBody: "Body"}

	err := SendEmail(cfg, email)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY not configured")
}

func TestSendEmail_NoBody(t *testing.T) {
	cfg := &config.Config{EmailTestMode: false, ResendAPIKey: "key"}
	email := &Email{To: []string{"test@example.com"}, Subject: "Test"}

	err := SendEmail(cfg, email)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "email must have either HTMLBody or TextBody")
}
