package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/creatorsgarden/garden/internal/auth"
	"github.com/creatorsgarden/garden/internal/models"
	"github.com/creatorsgarden/garden/internal/services"
	pkghttp "github.com/creatorsgarden/garden/pkg/http"
)

// AdminServiceInterface defines the interface for administrative operations
type AdminServiceInterface interface {
	UnlockUser(ctx context.Context, adminID, userID, ipAddress string) (*services.UserResponse, error)
	SuspendUser(ctx context.Context, adminID, userID, ipAddress string) (*services.UserResponse, error)
	ActivateUser(ctx context.Context, adminID, userID, ipAddress string) (*services.UserResponse, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*services.UserResponse, error)
	QueryEvents(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error)
	DetectAnomalies(ctx context.Context) ([]models.Anomaly, error)
}

// AdminHandler handles administrative HTTP requests
type AdminHandler struct {
	service  AdminServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service AdminServiceInterface, ipConfig *pkghttp.IPConfig) *AdminHandler {
	return &AdminHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// UnlockUser clears a user's failed-login lockout
func (h *AdminHandler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	h.updateAccount(w, r, h.service.UnlockUser)
}

// SuspendUser suspends a user account
func (h *AdminHandler) SuspendUser(w http.ResponseWriter, r *http.Request) {
	h.updateAccount(w, r, h.service.SuspendUser)
}

// ActivateUser reactivates a user account
func (h *AdminHandler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.updateAccount(w, r, h.service.ActivateUser)
}

func (h *AdminHandler) updateAccount(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, adminID, userID, ipAddress string) (*services.UserResponse, error)) {
	admin := auth.GetUserFromContext(r)
	if admin == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	user, err := op(r.Context(), admin.ID, userID, ipAddress)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Cannot perform this action on your own account")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(user)
}

// ListUsers returns a page of accounts
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	offset := parseIntParam(r, "offset", 0)

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"users": users})
}

// QueryEvents returns security log entries matching the query parameters
func (h *AdminHandler) QueryEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.SecurityEventFilter{
		Limit:    parseIntParam(r, "limit", 0),
		Kind:     q.Get("kind"),
		Severity: q.Get("severity"),
		UserID:   q.Get("user_id"),
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid 'from' timestamp; expected RFC3339")
			return
		}
		filter.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid 'to' timestamp; expected RFC3339")
			return
		}
		filter.To = &t
	}

	events, err := h.service.QueryEvents(r.Context(), filter)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"events": events})
}

// DetectAnomalies runs the threshold scan and returns flagged subjects
func (h *AdminHandler) DetectAnomalies(w http.ResponseWriter, r *http.Request) {
	anomalies, err := h.service.DetectAnomalies(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"anomalies": anomalies})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
