package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	h "choretracker/internal/delivery/http/helpers"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window.
	RequestsPerWindow int
	// Window is the time window for rate limiting.
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit.
	Burst int
}

var (
	// StrictLimit guards credential and token redemption endpoints.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}
	// PublicLimit guards anonymous read endpoints.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 120, Window: time.Minute, Burst: 30}
)

const limiterIdleSweep = 5 * time.Minute

// KeyExtractor returns the key requests are grouped by.
type KeyExtractor func(*http.Request) string

// ClientIP extracts the client address, honoring X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RateLimiter hands out one token bucket per key. It is safe for concurrent use.
type RateLimiter struct {
	cfg      RateLimitConfig
	key      KeyExtractor
	logger   *slog.Logger
	limiters sync.Map // map[string]*rate.Limiter

	mu        sync.Mutex
	lastSweep time.Time
}

// NewRateLimiter returns a per-IP limiter for cfg. Non-positive fields fall back to StrictLimit.
func NewRateLimiter(cfg RateLimitConfig, logger *slog.Logger) *RateLimiter {
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = StrictLimit.RequestsPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = StrictLimit.Window
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerWindow
	}
	return &RateLimiter{cfg: cfg, key: ClientIP, logger: logger, lastSweep: time.Now()}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	every := rate.Every(rl.cfg.Window / time.Duration(rl.cfg.RequestsPerWindow))
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(every, rl.cfg.Burst))
	rl.sweep()
	return actual.(*rate.Limiter)
}

// sweep drops limiters whose bucket has refilled, i.e. keys that have been idle.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastSweep) < limiterIdleSweep {
		return
	}
	rl.lastSweep = time.Now()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.cfg.Burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Wrap rejects requests over the limit with 429 rate_limited and a Retry-After header.
func (rl *RateLimiter) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)
		if key == "" {
			next(w, r)
			return
		}
		l := rl.limiter(key)
		if !l.Allow() {
			reservation := l.Reserve()
			retryAfter := max(int(reservation.Delay().Seconds()), 1)
			reservation.Cancel()

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", rl.cfg.Window.String())
			rl.logger.WarnContext(r.Context(), "rate limit exceeded",
				"key", key,
				"path", h.RouteLabel(r),
				"retry_after", retryAfter,
			)
			h.WriteJSONError(w, http.StatusTooManyRequests, h.ErrCodeRateLimited, "too many requests, try again later")
			return
		}
		next(w, r)
	}
}
