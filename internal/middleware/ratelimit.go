package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gridbalancer/internal/types"
)

// limiterEntry wraps a rate limiter with last access time
type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// rateLimiter implements fail-fast rate limiting per client. Requests
// over the limit are rejected immediately; nothing is queued.
type rateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rps      int
	burst    int
	keyFunc  func(*http.Request) string
	ttl      time.Duration
}

// RateLimit creates rate limiting middleware keyed by client IP, or by
// the given header when byHeader is non-empty.
func RateLimit(rps, burst int, byHeader string) types.Middleware {
	rl := &rateLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rps,
		burst:    burst,
		ttl:      5 * time.Minute,
	}

	if byHeader != "" {
		rl.keyFunc = func(r *http.Request) string {
			return r.Header.Get(byHeader)
		}
	} else {
		rl.keyFunc = getClientIP
	}

	return rl.Middleware
}

// Middleware returns the middleware handler
func (rl *rateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFunc(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.getLimiter(key).Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, types.ErrRateLimitExceeded.Error(), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if entry, ok := rl.limiters[key]; ok {
		entry.lastAccess = now
		return entry.limiter
	}

	// Opportunistic cleanup of idle limiters
	for k, entry := range rl.limiters {
		if now.Sub(entry.lastAccess) > rl.ttl {
			delete(rl.limiters, k)
		}
	}

	entry := &limiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
		lastAccess: now,
	}
	rl.limiters[key] = entry
	return entry.limiter
}

func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
