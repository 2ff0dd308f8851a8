package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/creatorsgarden/garden/internal/auth"
	"github.com/creatorsgarden/garden/internal/models"
	"github.com/creatorsgarden/garden/internal/services"
	pkgauth "github.com/creatorsgarden/garden/pkg/auth"
	pkghttp "github.com/creatorsgarden/garden/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error)
	Register(ctx context.Context, email, password, name string) (*services.UserResponse, error)
	Logout(ctx context.Context, token, userID string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service       AuthServiceInterface
	ipConfig      *pkghttp.IPConfig
	cookieConfig  auth.CookieConfig
	sessionMaxAge int
	csrfMaxAge    int
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, cookieConfig auth.CookieConfig, sessionMaxAge, csrfMaxAge int) *AuthHandler {
	return &AuthHandler{
		service:       service,
		ipConfig:      ipConfig,
		cookieConfig:  cookieConfig,
		sessionMaxAge: sessionMaxAge,
		csrfMaxAge:    csrfMaxAge,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// LoginResponse represents the response body for a successful login
type LoginResponse struct {
	User      *services.UserResponse `json:"user"`
	CSRFToken string                 `json:"csrf_token"`
}

// Login authenticates a user and establishes the session and CSRF cookies.
// All credential failures produce the same 401 body regardless of whether
// the email exists.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
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

	result, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress, userAgent)
	if err != nil {
		var lockedErr *models.AccountLockedError
		switch {
		case errors.As(err, &lockedErr):
			pkghttp.WriteLocked(w, "Account is temporarily locked due to repeated failed logins", int(lockedErr.RetryAfter.Seconds()))
		case errors.Is(err, models.ErrAccountSuspended), errors.Is(err, models.ErrAccountDeactivated):
			pkghttp.WriteForbidden(w, "Account is not active")
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Invalid email or password")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	auth.SetSessionCookie(w, result.SessionToken, h.sessionMaxAge, h.cookieConfig)
	auth.SetCSRFTokenCookie(w, result.CSRFToken, h.csrfMaxAge, h.cookieConfig)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(LoginResponse{
		User:      result.User,
		CSRFToken: result.CSRFToken,
	})
}

// Register creates a new account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		var validationErr *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &validationErr):
			pkghttp.WriteBadRequest(w, validationErr.Error())
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// Logout ends the current session and clears both cookies. Requires an
// authenticated session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	token, err := auth.GetSessionCookie(r)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), token, user.ID); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	auth.ClearSessionCookie(w, h.cookieConfig)
	auth.ClearCSRFTokenCookie(w, h.cookieConfig)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
}
