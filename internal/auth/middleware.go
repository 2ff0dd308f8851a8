package auth

import (
	"context"
	"net/http"

	"github.com/creatorsgarden/garden/internal/models"
	pkghttp "github.com/creatorsgarden/garden/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing the authenticated user in context
	UserContextKey contextKey = "user"
)

// SessionValidator resolves an opaque session token to its user.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.User, error)
}

// SecurityRecorder appends events to the security log.
type SecurityRecorder interface {
	Record(ctx context.Context, event *models.SecurityEvent)
}

// RequireSession validates the session cookie and injects the user into context.
func RequireSession(sessions SessionValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := GetSessionCookie(r)
			if err != nil || token == "" {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			user, err := sessions.ValidateSession(r.Context(), token)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole enforces role-based access. Must run after RequireSession.
// Denied requests are recorded as unauthorized_access.
func RequireRole(recorder SecurityRecorder, role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r)
			if user == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			if user.Role != role {
				recorder.Record(r.Context(), &models.SecurityEvent{
					Kind:      models.EventUnauthorizedAccess,
					Severity:  models.SeverityHigh,
					UserID:    &user.ID,
					Email:     &user.Email,
					IPAddress: pkghttp.ExtractClientIP(r, nil),
					UserAgent: r.Header.Get("User-Agent"),
					Detail: models.EventDetail{
						"path":          r.URL.Path,
						"method":        r.Method,
						"required_role": role,
					},
				})
				pkghttp.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts the authenticated user from request context
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
