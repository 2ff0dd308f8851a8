package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/creatorsgarden/garden/internal/ratelimit"
	pkghttp "github.com/creatorsgarden/garden/pkg/http"
)

// RateLimit enforces per-class, per-IP request budgets. Every response
// carries the X-RateLimit-* headers for the matched bucket; denied requests
// get a 429 with Retry-After.
func RateLimit(limiter *ratelimit.Limiter, ipConfig *pkghttp.IPConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := ratelimit.Classify(r.Method, r.URL.Path)
			ip := pkghttp.ExtractClientIP(r, ipConfig)

			result := limiter.Check(class, ip)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int(result.RetryAfter().Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				logger.Warn("rate limit exceeded",
					slog.String("class", string(class)),
					slog.String("ip_address", ip),
					slog.String("path", r.URL.Path))

				pkghttp.WriteTooManyRequests(w, "Rate limit exceeded. Please slow down.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
