// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration
type Config struct {
	PerMinute     int           // Sustained requests per minute
	Burst         int           // Requests allowed back to back
	MaxViolations int           // Denials in a row before a ban; zero disables bans
	BanDuration   time.Duration // How long to ban after too many denials
	IdleTTL       time.Duration // Entries unused for this long are dropped
	CleanupPeriod time.Duration // How often to clean up old entries
}

// DefaultSignInConfig returns defaults for the sign-in endpoint
func DefaultSignInConfig(perMinute int) *Config {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &Config{
		PerMinute:     perMinute,
		Burst:         perMinute,
		MaxViolations: 20,
		BanDuration:   15 * time.Minute,
		IdleTTL:       30 * time.Minute,
		CleanupPeriod: 10 * time.Minute,
	}
}

// clientRecord tracks one IP/identifier
type clientRecord struct {
	limiter    *rate.Limiter
	violations int
	lastSeen   time.Time
	bannedAt   *time.Time
}

// MemoryRateLimiter implements in-memory token bucket rate limiting
type MemoryRateLimiter struct {
	config  *Config
	clients map[string]*clientRecord
	mu      sync.Mutex
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryRateLimiter creates a new in-memory rate limiter
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	limiter := newMemoryRateLimiter(config, time.Now)
	go limiter.cleanupLoop()
	return limiter
}

func newMemoryRateLimiter(config *Config, now func() time.Time) *MemoryRateLimiter {
	if config.PerMinute <= 0 {
		config.PerMinute = 1
	}
	if config.Burst <= 0 {
		config.Burst = config.PerMinute
	}
	if config.CleanupPeriod <= 0 {
		config.CleanupPeriod = 10 * time.Minute
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 30 * time.Minute
	}
	return &MemoryRateLimiter{
		config:  config,
		clients: make(map[string]*clientRecord),
		now:     now,
		stopCh:  make(chan struct{}),
	}
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	Banned     bool
}

// Allow checks if a request should be allowed
func (rl *MemoryRateLimiter) Allow(identifier string) (bool, *RateLimitInfo) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	record, exists := rl.clients[identifier]
	if !exists {
		record = &clientRecord{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.config.PerMinute)), rl.config.Burst),
		}
		rl.clients[identifier] = record
	}
	record.lastSeen = now

	if record.bannedAt != nil {
		if elapsed := now.Sub(*record.bannedAt); elapsed < rl.config.BanDuration {
			return false, &RateLimitInfo{
				Limit:      rl.config.Burst,
				RetryAfter: rl.config.BanDuration - elapsed,
				Banned:     true,
			}
		}
		record.bannedAt = nil
		record.violations = 0
	}

	if record.limiter.AllowN(now, 1) {
		record.violations = 0
		return true, &RateLimitInfo{
			Allowed:   true,
			Limit:     rl.config.Burst,
			Remaining: int(record.limiter.TokensAt(now)),
		}
	}

	record.violations++
	if rl.config.MaxViolations > 0 && record.violations >= rl.config.MaxViolations {
		banTime := now
		record.bannedAt = &banTime
		return false, &RateLimitInfo{
			Limit:      rl.config.Burst,
			RetryAfter: rl.config.BanDuration,
			Banned:     true,
		}
	}

	reservation := record.limiter.ReserveN(now, 1)
	retryAfter := reservation.DelayFrom(now)
	reservation.CancelAt(now)

	return false, &RateLimitInfo{
		Limit:      rl.config.Burst,
		RetryAfter: retryAfter,
	}
}

// RecordSuccess forgets an identifier after a successful sign-in
func (rl *MemoryRateLimiter) RecordSuccess(identifier string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.clients, identifier)
}

// cleanupLoop periodically removes old records
func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup removes idle records whose ban, if any, has expired
func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for identifier, record := range rl.clients {
		idle := now.Sub(record.lastSeen) > rl.config.IdleTTL
		banned := record.bannedAt != nil && now.Sub(*record.bannedAt) < rl.config.BanDuration
		if idle && !banned {
			delete(rl.clients, identifier)
		}
	}
}

// Close stops the cleanup goroutine
func (rl *MemoryRateLimiter) Close() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the real client IP from request
func GetClientIP(r *http.Request) string {
	// Behind a proxy or load balancer
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := parseFirstIP(forwarded); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// parseFirstIP extracts the first IP from a comma-separated list
func parseFirstIP(forwarded string) string {
	first, _, _ := strings.Cut(forwarded, ",")
	return strings.TrimSpace(first)
}
