package quota

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/webdesk/webdesk/internal/metrics"
	"github.com/webdesk/webdesk/internal/protocol"
)

// AccountFromContext extracts the account ID from the request context.
// This function type allows decoupling from the auth package.
type AccountFromContext func(ctx context.Context) (accountID string, ok bool)

// RateLimitMiddleware returns middleware that enforces per-account rate
// limits at rpm requests per minute.
func RateLimitMiddleware(limiter *RateLimiter, rpm int, getAccount AccountFromContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok := getAccount(r.Context())
			if !ok {
				// No account context (unauthenticated request) - let it pass
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(accountID, rpm) {
				metrics.RecordRateLimitHit()
				retryAfter := limiter.RetryAfter(accountID, rpm)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(protocol.Response{
					Success: false,
					Message: "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
