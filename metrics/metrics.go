package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Case lifecycle metrics
	CaseTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caserelay_case_transitions_total",
			Help: "Total number of committed case lifecycle transitions",
		},
		[]string{"transition"},
	)

	// Outbox metrics
	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caserelay_events_dispatched_total",
			Help: "Total number of outbox events handed to the dispatcher",
		},
		[]string{"event"},
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caserelay_dispatch_failures_total",
			Help: "Total number of failed notification or email side effects",
		},
		[]string{"event"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caserelay_emails_sent_total",
			Help: "Total number of outbound emails by result",
		},
		[]string{"result"},
	)

	// Authentication metrics
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caserelay_auth_attempts_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	AccountLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caserelay_account_lockouts_total",
			Help: "Total number of accounts locked after repeated failures",
		},
	)

	SecurityAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caserelay_security_alerts_total",
			Help: "Total number of failed-login alerts raised per client IP",
		},
		[]string{"level"},
	)

	// HTTP metrics
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caserelay_rate_limited_total",
			Help: "Total number of requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caserelay_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
