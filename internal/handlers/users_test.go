package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creatorsgarden/garden/internal/auth"
	"github.com/creatorsgarden/garden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedRequest(method, target string, body *bytes.Buffer, user *models.User) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, user)
	return req.WithContext(ctx)
}

func TestUserHandler_Me(t *testing.T) {
	handler := NewUserHandler(&MockPasswordChanger{}, nil)

	user := &models.User{
		ID:        "user123",
		Email:     "alice@example.com",
		Name:      "Alice",
		Role:      "user",
		Status:    models.StatusActive,
		CreatedAt: time.Now(),
	}
	rec := httptest.NewRecorder()
	handler.Me(rec, authedRequest(http.MethodGet, "/users/me", nil, user))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp MeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "user123", resp.ID)
	assert.Equal(t, "alice@example.com", resp.Email)
	// The hash must never leak into the profile payload.
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUserHandler_Me_Unauthenticated(t *testing.T) {
	handler := NewUserHandler(&MockPasswordChanger{}, nil)

	rec := httptest.NewRecorder()
	handler.Me(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserHandler_ChangePassword(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"wrong current password", models.ErrInvalidCredentials, http.StatusUnauthorized},
		{"storage failure", models.ErrInternalServer, http.StatusInternalServerError},
	}

	user := &models.User{ID: "user123", Status: models.StatusActive}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changer := &MockPasswordChanger{
				ChangePasswordFunc: func(ctx context.Context, u *models.User, currentPassword, newPassword, ipAddress, userAgent string) error {
					return tt.serviceErr
				},
			}
			handler := NewUserHandler(changer, nil)

			body, _ := json.Marshal(map[string]string{
				"current_password": "abc12345",
				"new_password":     "fresh9999",
			})
			rec := httptest.NewRecorder()
			handler.ChangePassword(rec, authedRequest(http.MethodPost, "/users/me/password", bytes.NewBuffer(body), user))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestUserHandler_ChangePassword_MissingFields(t *testing.T) {
	handler := NewUserHandler(&MockPasswordChanger{}, nil)

	body, _ := json.Marshal(map[string]string{"current_password": "abc12345"})
	user := &models.User{ID: "user123"}
	rec := httptest.NewRecorder()
	handler.ChangePassword(rec, authedRequest(http.MethodPost, "/users/me/password", bytes.NewBuffer(body), user))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
