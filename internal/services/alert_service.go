package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/creatorsgarden/garden/internal/models"
	pkglogger "github.com/creatorsgarden/garden/pkg/logger"
)

// AlertService defines the interface for notifying operators about
// security incidents
type AlertService interface {
	SendAccountLockedAlert(ctx context.Context, email, ipAddress string, lockedUntil time.Time) error
	SendAnomalyReport(ctx context.Context, anomalies []models.Anomaly) error
}

// AWSSESAlertService sends security alerts to the operations contact
// using AWS SES
type AWSSESAlertService struct {
	sesClient       *ses.Client
	fromAddress     string
	securityContact string
	logger          *slog.Logger
}

// NewAWSSESAlertService creates a new AWS SES alert service
func NewAWSSESAlertService(region, fromAddress, securityContact string, logger *slog.Logger) (*AWSSESAlertService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESAlertService{
		sesClient:       ses.NewFromConfig(cfg),
		fromAddress:     fromAddress,
		securityContact: securityContact,
		logger:          logger,
	}, nil
}

// SendAccountLockedAlert notifies the security contact that an account was
// locked after repeated failed logins.
func (s *AWSSESAlertService) SendAccountLockedAlert(ctx context.Context, email, ipAddress string, lockedUntil time.Time) error {
	subject := "Account locked after repeated failed logins"
	body := fmt.Sprintf(`An account was locked after too many failed login attempts.

Account:      %s
Source IP:    %s
Locked until: %s

No action is required if this matches expected user behavior. Repeated
lockouts for the same account or from the same address may indicate a
credential stuffing attempt.
`, pkglogger.SanitizedEmail(email), ipAddress, lockedUntil.UTC().Format(time.RFC3339))

	return s.send(ctx, subject, body)
}

// SendAnomalyReport notifies the security contact about threshold
// violations found by the periodic anomaly scan.
func (s *AWSSESAlertService) SendAnomalyReport(ctx context.Context, anomalies []models.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("The periodic security scan flagged the following subjects:\n\n")
	for _, a := range anomalies {
		sb.WriteString(fmt.Sprintf("  %-20s %-40s %d events in %s\n", a.Kind, a.Subject, a.Count, a.Window))
	}
	sb.WriteString("\nReview the security event log for details.\n")

	subject := fmt.Sprintf("Security anomaly report: %d flagged subjects", len(anomalies))
	return s.send(ctx, subject, sb.String())
}

func (s *AWSSESAlertService) send(ctx context.Context, subject, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.securityContact},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send security alert via SES",
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send alert: %w", err)
	}

	s.logger.Info("security alert sent",
		slog.String("subject", subject),
		slog.String("message_id", *result.MessageId))

	return nil
}

// NoopAlertService discards alerts. Used when alert delivery is disabled,
// typically in development.
type NoopAlertService struct {
	logger *slog.Logger
}

// NewNoopAlertService creates an alert service that only logs
func NewNoopAlertService(logger *slog.Logger) *NoopAlertService {
	return &NoopAlertService{logger: logger}
}

func (s *NoopAlertService) SendAccountLockedAlert(ctx context.Context, email, ipAddress string, lockedUntil time.Time) error {
	s.logger.Info("alert delivery disabled, dropping account locked alert",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("ip_address", ipAddress))
	return nil
}

func (s *NoopAlertService) SendAnomalyReport(ctx context.Context, anomalies []models.Anomaly) error {
	s.logger.Info("alert delivery disabled, dropping anomaly report",
		slog.Int("anomalies", len(anomalies)))
	return nil
}
