package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/creatorsgarden/garden/internal/auth"
	"github.com/creatorsgarden/garden/internal/models"
	pkgauth "github.com/creatorsgarden/garden/pkg/auth"
	pkghttp "github.com/creatorsgarden/garden/pkg/http"
)

// PasswordChanger defines the interface for password updates
type PasswordChanger interface {
	ChangePassword(ctx context.Context, user *models.User, currentPassword, newPassword, ipAddress, userAgent string) error
}

// UserHandler handles requests against the authenticated user's own account
type UserHandler struct {
	passwords PasswordChanger
	ipConfig  *pkghttp.IPConfig
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(passwords PasswordChanger, ipConfig *pkghttp.IPConfig) *UserHandler {
	return &UserHandler{
		passwords: passwords,
		ipConfig:  ipConfig,
	}
}

// MeResponse represents the current user in the HTTP response
type MeResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Me returns the authenticated user's own profile
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(MeResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ChangePassword updates the authenticated user's password. All existing
// sessions are revoked, including the one behind this request.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	if err := h.passwords.ChangePassword(r.Context(), user, req.CurrentPassword, req.NewPassword, ipAddress, userAgent); err != nil {
		var validationErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
		case errors.As(err, &validationErr):
			pkghttp.WriteBadRequest(w, validationErr.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Password updated; please log in again"})
}
