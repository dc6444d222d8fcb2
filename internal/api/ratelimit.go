package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter applies a fixed-window per-tenant request limit backed by
// Redis, so the limit holds across server replicas. A nil limiter (Redis
// disabled) passes everything through.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Middleware enforces the limit per tenant. Redis outages fail open: a
// broken limiter must not take generation down with it.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl == nil || rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		tenantID := GetTenantIDFromContext(r.Context())
		key := fmt.Sprintf("ratelimit:ai:%s:%d", tenantID, time.Now().Unix()/int64(rl.window.Seconds()))

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			log.Printf("RateLimiter: Redis error, failing open: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, rl.window)
		}

		if count > int64(rl.limit) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			respondError(w, http.StatusTooManyRequests, codeRateLimited,
				"Too many generation requests. Please slow down.")
			return
		}

		next.ServeHTTP(w, r)
	})
}
