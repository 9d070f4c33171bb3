package middleware

import (
	"net/http"
	"sync"
	"time"

	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/shared"
)

type rateBucket struct {
	count int
	reset time.Time
}

// RateLimiter is a fixed-window per-client limiter, intended for the
// credential endpoints. Buckets are keyed by client IP.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*rateBucket
	now     func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*rateBucket),
		now:     time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	bucket, ok := rl.clients[key]
	if !ok || now.After(bucket.reset) {
		rl.clients[key] = &rateBucket{count: 1, reset: now.Add(rl.window)}
		rl.sweep(now)
		return true
	}
	if bucket.count >= rl.limit {
		return false
	}
	bucket.count++
	return true
}

// sweep drops expired buckets; called under the lock on bucket creation so
// the map does not grow with one-off clients.
func (rl *RateLimiter) sweep(now time.Time) {
	if len(rl.clients) < 1024 {
		return
	}
	for key, bucket := range rl.clients {
		if now.After(bucket.reset) {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl == nil || rl.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.allow(shared.ClientIP(r)) {
			api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests, try again later", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
