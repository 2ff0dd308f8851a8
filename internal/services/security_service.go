package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/creatorsgarden/garden/internal/models"
	"github.com/creatorsgarden/garden/internal/repositories"
	pkglogger "github.com/creatorsgarden/garden/pkg/logger"
)

// SecurityEventRepository defines the interface for security log storage
type SecurityEventRepository interface {
	Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error)
	Query(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error)
	FailureCountsByIP(ctx context.Context, since time.Time, minCount int) ([]repositories.SubjectCount, error)
	UnauthorizedCountsByUser(ctx context.Context, since time.Time, minCount int) ([]repositories.SubjectCount, error)
}

// AnomalyConfig holds the threshold constants for the anomaly scan. The
// window matches the login rate-limit window so the two signals line up.
type AnomalyConfig struct {
	Window              time.Duration
	FailedLoginsPerIP   int
	UnauthorizedPerUser int
}

// SecurityService records and queries security events and runs the
// threshold-based anomaly scan.
type SecurityService struct {
	repo        SecurityEventRepository
	config      AnomalyConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewSecurityService creates a new SecurityService
func NewSecurityService(repo SecurityEventRepository, config AnomalyConfig, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *SecurityService {
	return &SecurityService{
		repo:        repo,
		config:      config,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Record appends one event to the security log. It never propagates failure:
// a broken audit trail must not break the request being audited. Every event
// is also mirrored to the structured log stream.
func (s *SecurityService) Record(ctx context.Context, event *models.SecurityEvent) {
	if event.Severity == "" {
		event.Severity = models.SeverityLow
	}

	mirror := pkglogger.AuditEvent{
		Kind:      event.Kind,
		Severity:  event.Severity,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Detail:    event.Detail,
	}
	if event.UserID != nil {
		mirror.UserID = *event.UserID
	}
	if event.Email != nil {
		mirror.Email = *event.Email
	}
	s.auditLogger.LogSecurityEvent(mirror)

	if _, err := s.repo.Create(ctx, event); err != nil {
		s.logger.Error("failed to persist security event",
			slog.String("kind", event.Kind),
			slog.Any("error", err))
	}
}

// Query returns events matching the filter, most recent first.
func (s *SecurityService) Query(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error) {
	events, err := s.repo.Query(ctx, filter)
	if err != nil {
		s.logger.Error("failed to query security events", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return events, nil
}

// DetectAnomalies scans recent events for threshold violations: too many
// login failures from one IP, or too many unauthorized accesses for one
// user. Heuristic only; there is no suppression beyond the fixed thresholds.
func (s *SecurityService) DetectAnomalies(ctx context.Context) ([]models.Anomaly, error) {
	since := time.Now().Add(-s.config.Window)
	anomalies := make([]models.Anomaly, 0)

	ipCounts, err := s.repo.FailureCountsByIP(ctx, since, s.config.FailedLoginsPerIP)
	if err != nil {
		s.logger.Error("anomaly scan failed for login failures", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	for _, sc := range ipCounts {
		anomalies = append(anomalies, models.Anomaly{
			Kind:    models.EventLoginFailure,
			Subject: sc.Subject,
			Count:   sc.Count,
			Window:  s.config.Window,
		})
	}

	userCounts, err := s.repo.UnauthorizedCountsByUser(ctx, since, s.config.UnauthorizedPerUser)
	if err != nil {
		s.logger.Error("anomaly scan failed for unauthorized access", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	for _, sc := range userCounts {
		anomalies = append(anomalies, models.Anomaly{
			Kind:    models.EventUnauthorizedAccess,
			Subject: sc.Subject,
			Count:   sc.Count,
			Window:  s.config.Window,
		})
	}

	if len(anomalies) > 0 {
		s.logger.Warn("anomaly scan flagged subjects", slog.Int("count", len(anomalies)))
	}

	return anomalies, nil
}
