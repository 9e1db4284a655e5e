package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/stockroom/pkg/httputil"
	"github.com/platinummonkey/stockroom/pkg/observability"
)

// DefaultMaxKeys bounds the number of windows an in-memory limiter tracks
const DefaultMaxKeys = 10000

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
	}
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	def := DefaultRateLimitConfig()
	if c.RequestsPerWindow <= 0 {
		c.RequestsPerWindow = def.RequestsPerWindow
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = def.WindowDuration
	}
	return c
}

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a request under key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type window struct {
	start time.Time
	count int
}

// RateLimiter is an in-process fixed-window limiter. Idle keys expire from
// an LRU so memory stays bounded.
type RateLimiter struct {
	config  RateLimitConfig
	windows *expirable.LRU[string, *window]
	now     func() time.Time
	mu      sync.Mutex
}

// NewRateLimiter creates a new in-memory rate limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	config = config.normalize()
	return &RateLimiter{
		config:  config,
		windows: expirable.NewLRU[string, *window](DefaultMaxKeys, nil, config.WindowDuration),
		now:     time.Now,
	}
}

// Allow counts one request against key
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows.Get(key)
	if !ok || now.Sub(w.start) >= rl.config.WindowDuration {
		w = &window{start: now}
		rl.windows.Add(key, w)
	}
	w.count++

	remaining := rl.config.RequestsPerWindow - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   w.count <= rl.config.RequestsPerWindow,
		Limit:     rl.config.RequestsPerWindow,
		Remaining: remaining,
		ResetAt:   w.start.Add(rl.config.WindowDuration),
	}, nil
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	return rl.windows.Len()
}

// KeyFunc derives the rate limit key of a request
type KeyFunc func(r *http.Request) string

// DefaultKey keys authenticated callers by user id and everyone else by
// client IP
func DefaultKey(r *http.Request) string {
	if identity := GetIdentity(r); identity.Authenticated() {
		return fmt.Sprintf("user:%d", identity.UserID)
	}
	return "ip:" + httputil.ClientIP(r)
}

// RateLimitMiddleware provides HTTP rate limiting
type RateLimitMiddleware struct {
	limiter Limiter
	keyFunc KeyFunc
	scope   string
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRateLimitMiddleware creates a rate limit middleware. scope labels the
// rejection metric; metrics may be nil.
func NewRateLimitMiddleware(limiter Limiter, keyFunc KeyFunc, scope string, metrics *observability.Metrics) *RateLimitMiddleware {
	if keyFunc == nil {
		keyFunc = DefaultKey
	}
	return &RateLimitMiddleware{
		limiter: limiter,
		keyFunc: keyFunc,
		scope:   scope,
		metrics: metrics,
		now:     time.Now,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.keyFunc(r)

		decision, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			// Fail open
			observability.FromContext(r.Context()).
				WithError(err).
				WithField("scope", m.scope).
				Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, decision)

		if !decision.Allowed {
			m.metrics.ObserveRateLimited(m.scope)
			retryAfter := int(decision.ResetAt.Sub(m.now()).Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteTooManyRequests(w, "Too many requests, please try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
}
