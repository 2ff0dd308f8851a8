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
	"github.com/creatorsgarden/garden/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthHandler(service AuthServiceInterface) *AuthHandler {
	return NewAuthHandler(service, nil, auth.CookieConfig{SameSite: "strict"}, 7*24*3600, 30*60)
}

func loginBody(t *testing.T, email, password string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login_Success(t *testing.T) {
	service := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
			return &services.LoginResult{
				User:         &services.UserResponse{ID: "user123", Email: email},
				SessionToken: "session-token",
				CSRFToken:    "csrf-token",
			}, nil
		},
	}
	handler := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "alice@example.com", "abc12345"))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	session := findCookie(cookies, auth.SessionCookieName)
	require.NotNil(t, session)
	assert.Equal(t, "session-token", session.Value)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, 7*24*3600, session.MaxAge)

	csrf := findCookie(cookies, auth.CSRFCookieName)
	require.NotNil(t, csrf)
	assert.Equal(t, "csrf-token", csrf.Value)
	assert.False(t, csrf.HttpOnly)
	assert.Equal(t, 30*60, csrf.MaxAge)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "user123", resp.User.ID)
	assert.Equal(t, "csrf-token", resp.CSRFToken)
}

func TestAuthHandler_Login_InvalidBody(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "not-an-email", "abc12345"))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Login_InvalidCredentialsBodyIsUniform(t *testing.T) {
	// The handler sees the same sentinel for unknown emails and wrong
	// passwords, so the response body must be identical for both.
	service := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
			return nil, models.ErrInvalidCredentials
		},
	}
	handler := newTestAuthHandler(service)

	bodies := make([]string, 0, 2)
	for _, email := range []string{"known@example.com", "unknown@example.com"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, email, "whatever1"))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		bodies = append(bodies, rec.Body.String())
	}

	assert.Equal(t, bodies[0], bodies[1])
	assert.Contains(t, bodies[0], "Invalid email or password")
}

func TestAuthHandler_Login_LockedAccount(t *testing.T) {
	service := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
			return nil, &models.AccountLockedError{RetryAfter: 30 * time.Minute}
		},
	}
	handler := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "alice@example.com", "abc12345"))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "1800", rec.Header().Get("Retry-After"))

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 1800, resp["retry_after_seconds"])
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthHandler_Login_SuspendedAccount(t *testing.T) {
	service := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
			return nil, models.ErrAccountSuspended
		},
	}
	handler := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "alice@example.com", "abc12345"))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthHandler_Register_Success(t *testing.T) {
	service := &MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string) (*services.UserResponse, error) {
			return &services.UserResponse{ID: "user123", Email: email, Name: name}, nil
		},
	}
	handler := newTestAuthHandler(service)

	body, _ := json.Marshal(map[string]string{
		"email":    "bob@example.com",
		"password": "abc12345",
		"name":     "Bob",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	service := &MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string) (*services.UserResponse, error) {
			return nil, models.ErrConflict
		},
	}
	handler := newTestAuthHandler(service)

	body, _ := json.Marshal(map[string]string{
		"email":    "bob@example.com",
		"password": "abc12345",
		"name":     "Bob",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandler_Logout_ClearsCookies(t *testing.T) {
	loggedOut := false
	service := &MockAuthService{
		LogoutFunc: func(ctx context.Context, token, userID string) error {
			assert.Equal(t, "session-token", token)
			assert.Equal(t, "user123", userID)
			loggedOut = true
			return nil
		},
	}
	handler := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "session-token"})
	ctx := context.WithValue(req.Context(), auth.UserContextKey, &models.User{ID: "user123"})
	rec := httptest.NewRecorder()
	handler.Logout(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, loggedOut)

	cookies := rec.Result().Cookies()
	session := findCookie(cookies, auth.SessionCookieName)
	require.NotNil(t, session)
	assert.Negative(t, session.MaxAge)

	csrf := findCookie(cookies, auth.CSRFCookieName)
	require.NotNil(t, csrf)
	assert.Negative(t, csrf.MaxAge)
}

func TestAuthHandler_Logout_WithoutSession(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
