package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/creatorsgarden/garden/internal/models"
	"github.com/creatorsgarden/garden/internal/repositories"
	"github.com/creatorsgarden/garden/internal/services"
)

// AnomalyScanner runs the threshold scan over recent security events
type AnomalyScanner interface {
	DetectAnomalies(ctx context.Context) ([]models.Anomaly, error)
}

// CleanupManager periodically removes expired sessions, prunes old
// security events, and runs the anomaly scan
type CleanupManager struct {
	sessions       *repositories.SessionRepository
	events         *repositories.SecurityEventRepository
	scanner        AnomalyScanner
	alerts         services.AlertService
	logger         *slog.Logger
	interval       time.Duration
	eventRetention time.Duration
	stopCh         chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	sessions *repositories.SessionRepository,
	events *repositories.SecurityEventRepository,
	scanner AnomalyScanner,
	alerts services.AlertService,
	logger *slog.Logger,
	interval time.Duration,
	eventRetention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sessions:       sessions,
		events:         events,
		scanner:        scanner,
		alerts:         alerts,
		logger:         logger,
		interval:       interval,
		eventRetention: eventRetention,
		stopCh:         make(chan struct{}),
	}
}

// Start begins the periodic maintenance loop. Blocks until Stop is called
// or the context is cancelled, so run it in its own goroutine.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.run(ctx)

	for {
		select {
		case <-ticker.C:
			cm.run(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cm.cleanupSessions(runCtx)
	cm.pruneEvents(runCtx)
	cm.scanForAnomalies(runCtx)
}

func (cm *CleanupManager) cleanupSessions(ctx context.Context) {
	deleted, err := cm.sessions.DeleteExpired(ctx)
	if err != nil {
		cm.logger.Error("failed to delete expired sessions", slog.Any("error", err))
		return
	}
	if deleted > 0 {
		cm.logger.Info("expired session cleanup completed", slog.Int64("rows_deleted", deleted))
	}
}

func (cm *CleanupManager) pruneEvents(ctx context.Context) {
	cutoff := time.Now().Add(-cm.eventRetention)
	deleted, err := cm.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		cm.logger.Error("failed to prune security events", slog.Any("error", err))
		return
	}
	if deleted > 0 {
		cm.logger.Info("security event retention applied",
			slog.Int64("rows_deleted", deleted),
			slog.Time("cutoff", cutoff))
	}
}

func (cm *CleanupManager) scanForAnomalies(ctx context.Context) {
	anomalies, err := cm.scanner.DetectAnomalies(ctx)
	if err != nil {
		cm.logger.Error("anomaly scan failed", slog.Any("error", err))
		return
	}
	if len(anomalies) == 0 {
		return
	}

	if err := cm.alerts.SendAnomalyReport(ctx, anomalies); err != nil {
		cm.logger.Error("failed to send anomaly report", slog.Any("error", err))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
