package ratelimit

import (
	"encoding/json"
	"gatekeeper/internal/identity"
	"gatekeeper/internal/models"
	"log/slog"
	"math"
	"net/http"
	"strconv"
)

// KeyFunc derives the bucket key for a request.
type KeyFunc func(r *http.Request) string

// ClientIPKey keys requests on the resolved client address. Requests with no
// address share one bucket.
func ClientIPKey(r *http.Request) string {
	if ip := identity.ClientIP(r); ip != "" {
		return ip
	}
	return "unknown"
}

// Middleware enforces limiter per key and always sets the X-RateLimit-*
// headers. Denied requests get 429 with {"message":"rate_limited"}.
func Middleware(limiter Limiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientIPKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			allowed, info := limiter.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !allowed {
				retryAfter := max(1, int(math.Ceil(info.RetryAfter.Seconds())))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(models.NewErrorResponse(models.MessageRateLimited))

				slog.Warn("Flood limit exceeded",
					"path", r.URL.Path,
					"limit", info.Limit,
					"retry_after", retryAfter,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
