package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the IP-based rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64       // Requests allowed per second per IP
	Burst             int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up stale limiters
}

// DefaultRateLimitConfig returns production-safe defaults. The simulation
// core assumes at most one queued action per player per tick and never
// back-pressures, so flood control lives here at the transport edge.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 20,
	Burst:             40,
	CleanupInterval:   5 * time.Minute,
}

// ipLimiterEntry tracks per-IP rate limiting state.
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests.
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	// Stats for monitoring
	rejectedCount uint64 // atomic
	allowedCount  uint64 // atomic
}

// NewIPRateLimiter creates a new IP-based rate limiter and starts its
// cleanup goroutine.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the rate limiter cleanup goroutine. Idempotent.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// getLimiter returns or creates a rate limiter for the given IP.
func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now()

	if entry, ok := rl.limiters.Load(ip); ok {
		e := entry.(*ipLimiterEntry)
		e.lastSeen = now
		return e.limiter
	}

	entry := &ipLimiterEntry{
		limiter:  rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
		lastSeen: now,
	}
	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

// Middleware rejects requests from IPs that exceed their budget.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r)

		if !rl.getLimiter(ip).Allow() {
			atomic.AddUint64(&rl.rejectedCount, 1)
			RecordConnectionRejected("rate_limit")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		atomic.AddUint64(&rl.allowedCount, 1)
		next.ServeHTTP(w, r)
	})
}

// cleanupLoop removes limiters for IPs that have gone quiet, preventing
// unbounded growth from churning clients.
func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.CleanupInterval)
			rl.limiters.Range(func(key, value interface{}) bool {
				if value.(*ipLimiterEntry).lastSeen.Before(cutoff) {
					rl.limiters.Delete(key)
				}
				return true
			})
		}
	}
}

// Stats returns allowed/rejected counts for monitoring.
func (rl *IPRateLimiter) Stats() (allowed, rejected uint64) {
	return atomic.LoadUint64(&rl.allowedCount), atomic.LoadUint64(&rl.rejectedCount)
}

// GetClientIP extracts the client IP, honoring X-Forwarded-For from a
// fronting proxy.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// WebSocketRateLimiter caps concurrent WebSocket connections per IP.
type WebSocketRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	maxPer int
}

// NewWebSocketRateLimiter creates a per-IP connection limiter.
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{
		counts: make(map[string]int),
		maxPer: maxPerIP,
	}
}

// Allow reserves a connection slot for the IP; callers must Release it.
func (wl *WebSocketRateLimiter) Allow(ip string) bool {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	if wl.counts[ip] >= wl.maxPer {
		return false
	}
	wl.counts[ip]++
	return true
}

// Release frees a connection slot for the IP.
func (wl *WebSocketRateLimiter) Release(ip string) {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	if wl.counts[ip] > 0 {
		wl.counts[ip]--
		if wl.counts[ip] == 0 {
			delete(wl.counts, ip)
		}
	}
}
