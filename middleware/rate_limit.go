package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"case_relay_go/metrics"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig defines a fixed-window limit
type RateLimitConfig struct {
	// Name labels rejections in metrics
	Name     string
	Requests int
	Window   time.Duration
	// KeyFunc picks the bucket for a request (defaults to client IP)
	KeyFunc func(c echo.Context) string
	Message string
}

type rateWindow struct {
	count     int
	expiresAt time.Time
}

// RateLimiter counts requests per key inside a fixed window
type RateLimiter struct {
	config RateLimitConfig
	mu     sync.Mutex
	store  map[string]*rateWindow
	now    func() time.Time
}

// NewRateLimiter creates a limiter and starts its cleanup loop
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = KeyByIP
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}
	if config.Name == "" {
		config.Name = "default"
	}

	rl := &RateLimiter{
		config: config,
		store:  make(map[string]*rateWindow),
		now:    time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

// KeyByIP buckets requests by client address
func KeyByIP(c echo.Context) string {
	return "ip:" + c.RealIP()
}

// KeyByOfficer buckets authenticated requests by police id, so officers
// sharing a station NAT do not share a budget. Anonymous requests fall back
// to the client address.
func KeyByOfficer(c echo.Context) string {
	if user := GetCurrentUser(c); user != nil {
		return "officer:" + user.PoliceID
	}
	return KeyByIP(c)
}

// allow records a hit and reports whether it fits, with the remaining quota
// and the window end
func (rl *RateLimiter) allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	window, exists := rl.store[key]
	if !exists || !now.Before(window.expiresAt) {
		window = &rateWindow{expiresAt: now.Add(rl.config.Window)}
		rl.store[key] = window
	}
	if window.count >= rl.config.Requests {
		return false, 0, window.expiresAt
	}
	window.count++
	return true, rl.config.Requests - window.count, window.expiresAt
}

// Middleware rejects requests over the limit with 429 and Retry-After
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, remaining, resetAt := rl.allow(rl.config.KeyFunc(c))

			header := c.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !ok {
				retryAfter := int(resetAt.Sub(rl.now()).Seconds()) + 1
				header.Set("Retry-After", strconv.Itoa(retryAfter))
				metrics.RateLimited.WithLabelValues(rl.config.Name).Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
			}
			return next(c)
		}
	}
}

func (rl *RateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, window := range rl.store {
		if !now.Before(window.expiresAt) {
			delete(rl.store, key)
		}
	}
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.prune()
	}
}

// LoginRateLimiter allows 5 login attempts per minute per IP. Account
// lockout still applies per police id.
var LoginRateLimiter = NewRateLimiter(RateLimitConfig{
	Name:     "login",
	Requests: 5,
	Window:   1 * time.Minute,
	Message:  "Too many login attempts. Please wait a minute before trying again.",
})

// PasswordResetRateLimiter allows 3 reset requests per hour per IP
var PasswordResetRateLimiter = NewRateLimiter(RateLimitConfig{
	Name:     "password_reset",
	Requests: 3,
	Window:   1 * time.Hour,
	Message:  "Too many passcode reset requests. Please try again later.",
})

// APIRateLimiter allows 60 requests per minute per officer. It must run
// after RequireAuth.
var APIRateLimiter = NewRateLimiter(RateLimitConfig{
	Name:     "api",
	Requests: 60,
	Window:   1 * time.Minute,
	KeyFunc:  KeyByOfficer,
	Message:  "Rate limit exceeded. Please slow down your requests.",
})
