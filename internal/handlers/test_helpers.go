package handlers

import (
	"context"

	"github.com/creatorsgarden/garden/internal/models"
	"github.com/creatorsgarden/garden/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc    func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error)
	RegisterFunc func(ctx context.Context, email, password, name string) (*services.UserResponse, error)
	LogoutFunc   func(ctx context.Context, token, userID string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ipAddress, userAgent)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*services.UserResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Logout(ctx context.Context, token, userID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token, userID)
	}
	return nil
}

// MockPasswordChanger implements PasswordChanger for testing
type MockPasswordChanger struct {
	ChangePasswordFunc func(ctx context.Context, user *models.User, currentPassword, newPassword, ipAddress, userAgent string) error
}

func (m *MockPasswordChanger) ChangePassword(ctx context.Context, user *models.User, currentPassword, newPassword, ipAddress, userAgent string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, user, currentPassword, newPassword, ipAddress, userAgent)
	}
	return nil
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	UnlockUserFunc      func(ctx context.Context, adminID, userID, ipAddress string) (*services.UserResponse, error)
	SuspendUserFunc     func(ctx context.Context, adminID, userID, ipAddress string) (*services.UserResponse, error)
	ActivateUserFunc    func(ctx context.Context, adminID, userID, ipAddress string) (*services.UserResponse, error)
	ListUsersFunc       func(ctx context.Context, limit, offset int) ([]*services.UserResponse, error)
	QueryEventsFunc     func(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error)
	DetectAnomaliesFunc func(ctx context.Context) ([]models.Anomaly, error)
}

func (m *MockAdminService) UnlockUser(ctx context.Context, adminID, userID, ipAddress string) (*services.UserResponse, error) {
	if m.UnlockUserFunc != nil {
		return m.UnlockUserFunc(ctx, adminID, userID, ipAddress)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminService) SuspendUser(ctx context.Context, adminID, userID, ipAddress string) (*services.UserResponse, error) {
	if m.SuspendUserFunc != nil {
		return m.SuspendUserFunc(ctx, adminID, userID, ipAddress)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminService) ActivateUser(ctx context.Context, adminID, userID, ipAddress string) (*services.UserResponse, error) {
	if m.ActivateUserFunc != nil {
		return m.ActivateUserFunc(ctx, adminID, userID, ipAddress)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminService) ListUsers(ctx context.Context, limit, offset int) ([]*services.UserResponse, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, limit, offset)
	}
	return []*services.UserResponse{}, nil
}

func (m *MockAdminService) QueryEvents(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error) {
	if m.QueryEventsFunc != nil {
		return m.QueryEventsFunc(ctx, filter)
	}
	return []*models.SecurityEvent{}, nil
}

func (m *MockAdminService) DetectAnomalies(ctx context.Context) ([]models.Anomaly, error) {
	if m.DetectAnomaliesFunc != nil {
		return m.DetectAnomaliesFunc(ctx)
	}
	return []models.Anomaly{}, nil
}
