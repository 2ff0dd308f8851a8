package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/creatorsgarden/garden/internal/auth"
	"github.com/creatorsgarden/garden/internal/models"
	pkgauth "github.com/creatorsgarden/garden/pkg/auth"
)

// UserRepository defines the interface for user storage
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateLoginSecurity(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	UpdateStatus(ctx context.Context, id, status string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// SecurityRecorder appends events to the security log without ever
// failing the calling request.
type SecurityRecorder interface {
	Record(ctx context.Context, event *models.SecurityEvent)
}

// CSRFStore issues and tracks per-user CSRF tokens
type CSRFStore interface {
	Generate(userID string) (string, error)
	Validate(userID, token string) bool
	Delete(userID string)
}

// TimingWaiter pads the login path so every failure takes a uniform minimum
// time regardless of which branch rejected it.
type TimingWaiter interface {
	WaitFrom(start time.Time, succeeded bool)
}

// AuthConfig holds the tunables for login security
type AuthConfig struct {
	SessionExpiry   time.Duration
	MaxFailedLogins int
	LockoutDuration time.Duration
}

// AuthService handles authentication business logic
type AuthService struct {
	users    UserRepository
	sessions SessionRepository
	security SecurityRecorder
	csrf     CSRFStore
	alerts   AlertService
	timing   TimingWaiter
	config   AuthConfig
	logger   *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, sessions SessionRepository, security SecurityRecorder, csrf CSRFStore, alerts AlertService, timing TimingWaiter, config AuthConfig, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		security: security,
		csrf:     csrf,
		alerts:   alerts,
		timing:   timing,
		config:   config,
		logger:   logger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// LoginResult carries the outcome of a successful login. The tokens are
// returned to the handler, which sets them as cookies.
type LoginResult struct {
	User         *UserResponse
	SessionToken string
	CSRFToken    string
}

// Login authenticates a user, driving the failed-attempt counter and
// account lockout. Both unknown emails and wrong passwords come back as
// ErrInvalidCredentials, and every failure is padded to the same minimum
// elapsed time, so neither the response body nor its latency can be used
// to probe which addresses have accounts.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	start := time.Now()
	result, err := s.login(ctx, email, password, ipAddress, userAgent)
	s.timing.WaitFrom(start, err == nil)
	return result, err
}

func (s *AuthService) login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now()

	s.security.Record(ctx, &models.SecurityEvent{
		Kind:      models.EventLoginAttempt,
		Severity:  models.SeverityLow,
		Email:     &email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials")
			s.recordFailure(ctx, nil, &email, ipAddress, userAgent, "user_not_found", models.SeverityMedium)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	switch user.Status {
	case models.StatusActive:
		// proceed
	case models.StatusSuspended:
		s.recordFailure(ctx, &user.ID, &email, ipAddress, userAgent, "account_suspended", models.SeverityMedium)
		return nil, models.ErrAccountSuspended
	case models.StatusDeactivated:
		s.recordFailure(ctx, &user.ID, &email, ipAddress, userAgent, "account_deactivated", models.SeverityMedium)
		return nil, models.ErrAccountDeactivated
	default:
		s.logger.Error("user has unknown status",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status))
		return nil, models.ErrInternalServer
	}

	if user.LockedUntil != nil {
		if user.IsLocked(now) {
			s.recordFailure(ctx, &user.ID, &email, ipAddress, userAgent, "account_locked", models.SeverityHigh)
			return nil, &models.AccountLockedError{RetryAfter: user.LockedUntil.Sub(now)}
		}
		// Lock expired; reset lazily before evaluating the attempt.
		if err := s.users.UpdateLoginSecurity(ctx, user.ID, 0, nil); err != nil {
			s.logger.Error("failed to clear expired lockout",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
	}

	if !pkgauth.VerifyPassword(user.PasswordHash, password) {
		return nil, s.handleFailedPassword(ctx, user, email, ipAddress, userAgent, now)
	}

	// Legacy plaintext credential verified: upgrade it in place. Login
	// proceeds even if the rewrite fails; the next login retries it.
	if !pkgauth.IsHashed(user.PasswordHash) {
		if hash, hashErr := pkgauth.HashPassword(password); hashErr == nil {
			if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
				s.logger.Error("failed to upgrade legacy password hash",
					slog.String("user_id", user.ID),
					slog.Any("error", err))
			} else {
				s.logger.Info("upgraded legacy password to bcrypt", slog.String("user_id", user.ID))
			}
		}
	}

	if user.FailedLoginAttempts > 0 {
		if err := s.users.UpdateLoginSecurity(ctx, user.ID, 0, nil); err != nil {
			s.logger.Error("failed to reset failed login counter",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
		}
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	session := &models.Session{
		UserID:    user.ID,
		TokenHash: auth.HashSessionToken(token),
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.config.SessionExpiry),
	}
	if _, err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Error("failed to create session",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	csrfToken, err := s.csrf.Generate(user.ID)
	if err != nil {
		s.logger.Error("failed to generate CSRF token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.security.Record(ctx, &models.SecurityEvent{
		Kind:      models.EventLoginSuccess,
		Severity:  models.SeverityLow,
		UserID:    &user.ID,
		Email:     &email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})

	return &LoginResult{
		User:         toUserResponse(user),
		SessionToken: token,
		CSRFToken:    csrfToken,
	}, nil
}

// handleFailedPassword bumps the failed-attempt counter and locks the
// account once the threshold is reached.
func (s *AuthService) handleFailedPassword(ctx context.Context, user *models.User, email, ipAddress, userAgent string, now time.Time) error {
	failed := user.FailedLoginAttempts + 1

	if failed >= s.config.MaxFailedLogins {
		lockedUntil := now.Add(s.config.LockoutDuration)
		if err := s.users.UpdateLoginSecurity(ctx, user.ID, failed, &lockedUntil); err != nil {
			s.logger.Error("failed to lock account",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
			return models.ErrInternalServer
		}

		s.security.Record(ctx, &models.SecurityEvent{
			Kind:      models.EventAccountLocked,
			Severity:  models.SeverityHigh,
			UserID:    &user.ID,
			Email:     &email,
			IPAddress: ipAddress,
			UserAgent: userAgent,
			Detail: models.EventDetail{
				"failed_attempts": failed,
				"locked_until":    lockedUntil.UTC().Format(time.RFC3339),
			},
		})

		if err := s.alerts.SendAccountLockedAlert(ctx, email, ipAddress, lockedUntil); err != nil {
			s.logger.Error("failed to send lockout alert", slog.Any("error", err))
		}

		return &models.AccountLockedError{RetryAfter: s.config.LockoutDuration}
	}

	if err := s.users.UpdateLoginSecurity(ctx, user.ID, failed, nil); err != nil {
		s.logger.Error("failed to record failed login attempt",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("login failed: invalid credentials")
	s.security.Record(ctx, &models.SecurityEvent{
		Kind:      models.EventLoginFailure,
		Severity:  models.SeverityMedium,
		UserID:    &user.ID,
		Email:     &email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Detail: models.EventDetail{
			"reason":             "invalid_password",
			"remaining_attempts": s.config.MaxFailedLogins - failed,
		},
	})

	return models.ErrInvalidCredentials
}

func (s *AuthService) recordFailure(ctx context.Context, userID, email *string, ipAddress, userAgent, reason, severity string) {
	s.security.Record(ctx, &models.SecurityEvent{
		Kind:      models.EventLoginFailure,
		Severity:  severity,
		UserID:    userID,
		Email:     email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Detail:    models.EventDetail{"reason": reason},
	})
}

// Register creates a new account with an active status and the default role
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*UserResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.users.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return toUserResponse(user), nil
}

// ValidateSession resolves a raw session token to its user. Expired
// sessions are removed on sight rather than waiting for the sweeper.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	tokenHash := auth.HashSessionToken(token)

	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to look up session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if session.IsExpired(time.Now()) {
		if err := s.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil {
			s.logger.Error("failed to delete expired session", slog.Any("error", err))
		}
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to load session user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.Status != models.StatusActive {
		return nil, models.ErrUnauthorized
	}

	return user, nil
}

// Logout ends the session behind the given token and revokes the user's
// CSRF token
func (s *AuthService) Logout(ctx context.Context, token, userID string) error {
	tokenHash := auth.HashSessionToken(token)

	if err := s.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to delete session",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.csrf.Delete(userID)
	s.logger.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// ChangePassword verifies the current password, stores a bcrypt hash of the
// new one, and revokes every session the user holds.
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, currentPassword, newPassword, ipAddress, userAgent string) error {
	if !pkgauth.VerifyPassword(user.PasswordHash, currentPassword) {
		s.security.Record(ctx, &models.SecurityEvent{
			Kind:      models.EventLoginFailure,
			Severity:  models.SeverityMedium,
			UserID:    &user.ID,
			IPAddress: ipAddress,
			UserAgent: userAgent,
			Detail:    models.EventDetail{"reason": "password_change_bad_current"},
		})
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		s.logger.Error("failed to update password hash",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.sessions.DeleteByUserID(ctx, user.ID); err != nil {
		s.logger.Error("failed to revoke sessions after password change",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}
	s.csrf.Delete(user.ID)

	s.security.Record(ctx, &models.SecurityEvent{
		Kind:      models.EventPasswordChange,
		Severity:  models.SeverityMedium,
		UserID:    &user.ID,
		Email:     &user.Email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})

	return nil
}

// ValidateCSRFToken checks the submitted token against the user's live one
func (s *AuthService) ValidateCSRFToken(userID, token string) bool {
	return s.csrf.Validate(userID, token)
}

func toUserResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}
