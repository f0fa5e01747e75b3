package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(start time.Time) (*SecurityEventMonitor, *time.Time) {
	clock := start
	m := NewSecurityMonitor()
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestSecurityMonitor(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Repeated failures against one account", func(t *testing.T) {
		m, _ := newTestMonitor(start)
		for i := 0; i < failedLoginThreshold-1; i++ {
			m.TrackFailedLogin("10.0.0.1", "P1")
		}
		assert.Empty(t, m.GetRecentAlerts())

		m.TrackFailedLogin("10.0.0.1", "P1")
		alerts := m.GetRecentAlerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, "10.0.0.1", alerts[0].IP)
		assert.Equal(t, "WARNING", alerts[0].Level)
		assert.Contains(t, alerts[0].Reason, "Multiple failed logins")
	})

	t.Run("One IP cycling through accounts is critical", func(t *testing.T) {
		m, _ := newTestMonitor(start)
		m.TrackFailedLogin("10.0.0.2", "P1")
		m.TrackFailedLogin("10.0.0.2", "P2")
		m.TrackFailedLogin("10.0.0.2", "P3")

		alerts := m.GetRecentAlerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, "CRITICAL", alerts[0].Level)
		assert.Equal(t, []string{"P1", "P2", "P3"}, alerts[0].Accounts)
	})

	t.Run("Alerts are rate limited per IP", func(t *testing.T) {
		m, clock := newTestMonitor(start)
		for i := 0; i < 10; i++ {
			m.TrackFailedLogin("10.0.0.3", "P1")
		}
		assert.Len(t, m.GetRecentAlerts(), 1)

		*clock = clock.Add(securityAlertCooldown + time.Minute)
		for i := 0; i < failedLoginThreshold; i++ {
			m.TrackFailedLogin("10.0.0.3", "P1")
		}
		assert.Len(t, m.GetRecentAlerts(), 2)
	})

	t.Run("Failures outside the window are forgotten", func(t *testing.T) {
		m, clock := newTestMonitor(start)
		for i := 0; i < failedLoginThreshold-1; i++ {
			m.TrackFailedLogin("10.0.0.4", "P1")
		}
		*clock = clock.Add(securityWindow + time.Second)
		m.TrackFailedLogin("10.0.0.4", "P1")
		assert.Empty(t, m.GetRecentAlerts())

		*clock = clock.Add(securityWindow + time.Second)
		m.prune()
		m.mu.Lock()
		defer m.mu.Unlock()
		assert.Empty(t, m.failedLogins)
	})
}
