package middleware

import (
	"net/http"

	"github.com/creatorsgarden/garden/internal/auth"
	"github.com/creatorsgarden/garden/internal/models"
	pkghttp "github.com/creatorsgarden/garden/pkg/http"
)

// CSRFHeaderName is the header clients echo the CSRF cookie value into
const CSRFHeaderName = "X-CSRF-Token"

// CSRFValidator checks a submitted token against the user's live one
type CSRFValidator interface {
	Validate(userID, token string) bool
}

// RequireCSRF enforces the double-submit CSRF check on state-changing
// requests. Must run after RequireSession. Safe methods pass through
// untouched.
func RequireCSRF(csrf CSRFValidator, recorder auth.SecurityRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			user := auth.GetUserFromContext(r)
			if user == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			token := r.Header.Get(CSRFHeaderName)
			if token == "" || !csrf.Validate(user.ID, token) {
				recorder.Record(r.Context(), &models.SecurityEvent{
					Kind:      models.EventUnauthorizedAccess,
					Severity:  models.SeverityHigh,
					UserID:    &user.ID,
					IPAddress: pkghttp.ExtractClientIP(r, nil),
					UserAgent: r.Header.Get("User-Agent"),
					Detail: models.EventDetail{
						"path":   r.URL.Path,
						"method": r.Method,
						"reason": "csrf_token_invalid",
					},
				})
				pkghttp.WriteForbidden(w, "Invalid or missing CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
