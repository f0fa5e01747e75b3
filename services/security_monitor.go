package services

import (
	"log"
	"sync"
	"time"

	"case_relay_go/metrics"
)

// Failed-login alert thresholds, evaluated per client IP
const (
	securityWindow          = 10 * time.Minute
	securityAlertCooldown   = 1 * time.Hour
	failedLoginThreshold    = 5
	targetedAccountsTrigger = 3
	maxStoredAlerts         = 100
)

// SecurityEventMonitor aggregates failed logins per IP. Per-account lockout
// cannot see one address cycling through many police ids, this can.
type SecurityEventMonitor struct {
	mu           sync.Mutex
	failedLogins map[string][]failedLogin // IP -> failures inside the window
	alertedIPs   map[string]time.Time     // IP -> last alert time
	alerts       []SecurityAlert          // newest first

	now func() time.Time
}

type failedLogin struct {
	at       time.Time
	policeID string
}

// SecurityAlert represents a triggered security alert
type SecurityAlert struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	Reason    string    `json:"reason"`
	Level     string    `json:"level"` // WARNING, CRITICAL
	Accounts  []string  `json:"accounts"`
}

// Global monitor instance
var Monitor *SecurityEventMonitor

func NewSecurityMonitor() *SecurityEventMonitor {
	return &SecurityEventMonitor{
		failedLogins: make(map[string][]failedLogin),
		alertedIPs:   make(map[string]time.Time),
		now:          time.Now,
	}
}

// InitSecurityMonitor initializes the global monitor and its cleanup loop
func InitSecurityMonitor() {
	Monitor = NewSecurityMonitor()
	go Monitor.cleanupLoop()
}

// TrackFailedLogin records a failed login and raises an alert when the IP
// crosses a threshold
func (m *SecurityEventMonitor) TrackFailedLogin(ip, policeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	windowStart := now.Add(-securityWindow)
	recent := []failedLogin{}
	for _, f := range m.failedLogins[ip] {
		if f.at.After(windowStart) {
			recent = append(recent, f)
		}
	}
	recent = append(recent, failedLogin{at: now, policeID: policeID})
	m.failedLogins[ip] = recent

	accounts := distinctAccounts(recent)
	switch {
	case len(accounts) >= targetedAccountsTrigger:
		m.triggerAlertLocked(now, ip, "Failed logins against multiple accounts", "CRITICAL", accounts)
	case len(recent) >= failedLoginThreshold:
		m.triggerAlertLocked(now, ip, "Multiple failed logins detected", "WARNING", accounts)
	}
}

func distinctAccounts(failures []failedLogin) []string {
	seen := make(map[string]bool)
	var accounts []string
	for _, f := range failures {
		if f.policeID == "" || seen[f.policeID] {
			continue
		}
		seen[f.policeID] = true
		accounts = append(accounts, f.policeID)
	}
	return accounts
}

// triggerAlertLocked records an alert. At most one per IP per cooldown.
func (m *SecurityEventMonitor) triggerAlertLocked(now time.Time, ip, reason, level string, accounts []string) {
	if last, alerted := m.alertedIPs[ip]; alerted && now.Sub(last) < securityAlertCooldown {
		return
	}
	m.alertedIPs[ip] = now

	alert := SecurityAlert{Timestamp: now, IP: ip, Reason: reason, Level: level, Accounts: accounts}
	m.alerts = append([]SecurityAlert{alert}, m.alerts...)
	if len(m.alerts) > maxStoredAlerts {
		m.alerts = m.alerts[:maxStoredAlerts]
	}

	metrics.SecurityAlerts.WithLabelValues(level).Inc()
	log.Printf("[SECURITY ALERT] %s %s from IP: %s (accounts: %v)", level, reason, ip, accounts)
}

// GetRecentAlerts returns a copy of recent alerts, newest first
func (m *SecurityEventMonitor) GetRecentAlerts() []SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	alertsCopy := make([]SecurityAlert, len(m.alerts))
	copy(alertsCopy, m.alerts)
	return alertsCopy
}

// prune drops failure windows and alert cooldowns that have run out
func (m *SecurityEventMonitor) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for ip, failures := range m.failedLogins {
		if len(failures) == 0 || now.Sub(failures[len(failures)-1].at) > securityWindow {
			delete(m.failedLogins, ip)
		}
	}
	for ip, last := range m.alertedIPs {
		if now.Sub(last) > securityAlertCooldown {
			delete(m.alertedIPs, ip)
		}
	}
}

func (m *SecurityEventMonitor) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		m.prune()
	}
}
