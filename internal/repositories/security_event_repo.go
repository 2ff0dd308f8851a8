package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/creatorsgarden/garden/internal/database"
	"github.com/creatorsgarden/garden/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SecurityEventRepository handles the append-only security log
type SecurityEventRepository struct {
	pool *pgxpool.Pool
}

func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{pool: db.Pool}
}

// SubjectCount is one aggregated row from an anomaly scan.
type SubjectCount struct {
	Subject string
	Count   int
}

const securityEventColumns = `id, kind, severity, user_id, email, ip_address, user_agent, detail, created_at`

func scanSecurityEventRow(scanner rowScanner) (*models.SecurityEvent, error) {
	var e models.SecurityEvent
	err := scanner.Scan(
		&e.ID, &e.Kind, &e.Severity, &e.UserID, &e.Email,
		&e.IPAddress, &e.UserAgent, &e.Detail, &e.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &e, nil
}

func scanSecurityEventRows(rows pgx.Rows) ([]*models.SecurityEvent, error) {
	defer rows.Close()

	events := make([]*models.SecurityEvent, 0)

	for rows.Next() {
		event, err := scanSecurityEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security event rows: %w", err)
	}

	return events, nil
}

// Create appends one event. The log is append-only; there is no update path.
func (r *SecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error) {
	event.ID = uuid.New().String()

	query := `
		INSERT INTO security_events (id, kind, severity, user_id, email, ip_address, user_agent, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + securityEventColumns

	result, err := scanSecurityEventRow(r.pool.QueryRow(ctx, query,
		event.ID, event.Kind, event.Severity, event.UserID, event.Email,
		event.IPAddress, event.UserAgent, event.Detail,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create security event: %w", err)
	}

	return result, nil
}

// Query returns matching events, most recent first. Zero-value filter fields
// are ignored; the limit is clamped to 1..100 with a default of 100.
func (r *SecurityEventRepository) Query(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)

	appendCondition := func(column, op string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, column+" "+op+" $"+strconv.Itoa(len(args)))
	}

	if filter.Kind != "" {
		appendCondition("kind", "=", filter.Kind)
	}
	if filter.Severity != "" {
		appendCondition("severity", "=", filter.Severity)
	}
	if filter.UserID != "" {
		appendCondition("user_id", "=", filter.UserID)
	}
	if filter.From != nil {
		appendCondition("created_at", ">=", *filter.From)
	}
	if filter.To != nil {
		appendCondition("created_at", "<=", *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	args = append(args, limit)

	query := `SELECT ` + securityEventColumns + ` FROM security_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return scanSecurityEventRows(rows)
}

// FailureCountsByIP returns IPs with at least minCount login_failure events
// since the given time.
func (r *SecurityEventRepository) FailureCountsByIP(ctx context.Context, since time.Time, minCount int) ([]SubjectCount, error) {
	query := `
		SELECT ip_address, COUNT(*) FROM security_events
		WHERE kind = $1 AND created_at >= $2
		GROUP BY ip_address
		HAVING COUNT(*) >= $3
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.pool.Query(ctx, query, models.EventLoginFailure, since, minCount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate login failures by ip: %w", err)
	}

	return scanSubjectCounts(rows)
}

// UnauthorizedCountsByUser returns users with at least minCount
// unauthorized_access events since the given time.
func (r *SecurityEventRepository) UnauthorizedCountsByUser(ctx context.Context, since time.Time, minCount int) ([]SubjectCount, error) {
	query := `
		SELECT user_id, COUNT(*) FROM security_events
		WHERE kind = $1 AND created_at >= $2 AND user_id IS NOT NULL
		GROUP BY user_id
		HAVING COUNT(*) >= $3
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.pool.Query(ctx, query, models.EventUnauthorizedAccess, since, minCount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate unauthorized access by user: %w", err)
	}

	return scanSubjectCounts(rows)
}

func scanSubjectCounts(rows pgx.Rows) ([]SubjectCount, error) {
	defer rows.Close()

	counts := make([]SubjectCount, 0)

	for rows.Next() {
		var sc SubjectCount
		if err := rows.Scan(&sc.Subject, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan subject count: %w", err)
		}
		counts = append(counts, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subject counts: %w", err)
	}

	return counts, nil
}

// DeleteOlderThan applies the retention policy to the security log.
func (r *SecurityEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM security_events WHERE created_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup security events: %w", err)
	}

	return result.RowsAffected(), nil
}
