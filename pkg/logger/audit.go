package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent mirrors a security event into the structured log stream.
type AuditEvent struct {
	Kind      string
	Severity  string
	UserID    string
	Email     string
	IPAddress string
	UserAgent string
	Detail    map[string]interface{}
}

// AuditLogger writes security events to slog so operators can follow the
// audit trail without querying the database.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogSecurityEvent logs one security event. High severity logs at warn level.
func (al *AuditLogger) LogSecurityEvent(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("kind", event.Kind),
		slog.String("severity", event.Severity),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	for key, val := range event.Detail {
		attrs = append(attrs, slog.Any(key, val))
	}

	level := slog.LevelInfo
	if event.Severity == "high" {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
