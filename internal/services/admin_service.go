package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/creatorsgarden/garden/internal/models"
)

// AdminService handles administrative account operations
type AdminService struct {
	users    UserRepository
	sessions SessionRepository
	security *SecurityService
	csrf     CSRFStore
	logger   *slog.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(users UserRepository, sessions SessionRepository, security *SecurityService, csrf CSRFStore, logger *slog.Logger) *AdminService {
	return &AdminService{
		users:    users,
		sessions: sessions,
		security: security,
		csrf:     csrf,
		logger:   logger,
	}
}

// UnlockUser clears a user's lockout and failed-attempt counter ahead of
// the automatic expiry
func (s *AdminService) UnlockUser(ctx context.Context, adminID, userID, ipAddress string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.users.UpdateLoginSecurity(ctx, user.ID, 0, nil); err != nil {
		s.logger.Error("failed to unlock user",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil

	s.security.Record(ctx, &models.SecurityEvent{
		Kind:      models.EventAdminAction,
		Severity:  models.SeverityMedium,
		UserID:    &adminID,
		IPAddress: ipAddress,
		Detail: models.EventDetail{
			"action":      "unlock_account",
			"target_user": user.ID,
		},
	})

	s.logger.Info("account unlocked by admin",
		slog.String("admin_id", adminID),
		slog.String("user_id", user.ID))

	return toUserResponse(user), nil
}

// SuspendUser marks an account suspended and revokes all of its sessions
func (s *AdminService) SuspendUser(ctx context.Context, adminID, userID, ipAddress string) (*UserResponse, error) {
	if adminID == userID {
		return nil, models.ErrBadRequest
	}

	user, err := s.users.UpdateStatus(ctx, userID, models.StatusSuspended)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to suspend user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, err := s.sessions.DeleteByUserID(ctx, user.ID); err != nil {
		s.logger.Error("failed to revoke sessions for suspended user",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}
	s.csrf.Delete(user.ID)

	s.security.Record(ctx, &models.SecurityEvent{
		Kind:      models.EventAccountSuspended,
		Severity:  models.SeverityMedium,
		UserID:    &user.ID,
		Email:     &user.Email,
		IPAddress: ipAddress,
		Detail:    models.EventDetail{"admin_id": adminID},
	})

	return toUserResponse(user), nil
}

// ActivateUser returns a suspended or deactivated account to active
func (s *AdminService) ActivateUser(ctx context.Context, adminID, userID, ipAddress string) (*UserResponse, error) {
	user, err := s.users.UpdateStatus(ctx, userID, models.StatusActive)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to activate user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.security.Record(ctx, &models.SecurityEvent{
		Kind:      models.EventAccountActivated,
		Severity:  models.SeverityMedium,
		UserID:    &user.ID,
		Email:     &user.Email,
		IPAddress: ipAddress,
		Detail:    models.EventDetail{"admin_id": adminID},
	})

	return toUserResponse(user), nil
}

// ListUsers returns a page of accounts
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]*UserResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, toUserResponse(u))
	}
	return responses, nil
}

// QueryEvents returns security log entries matching the filter
func (s *AdminService) QueryEvents(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error) {
	return s.security.Query(ctx, filter)
}

// DetectAnomalies runs the threshold scan on demand
func (s *AdminService) DetectAnomalies(ctx context.Context) ([]models.Anomaly, error) {
	return s.security.DetectAnomalies(ctx)
}
