package services

import (
	"context"
	"sync"
	"time"

	"github.com/creatorsgarden/garden/internal/models"
	"github.com/creatorsgarden/garden/internal/repositories"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc             func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc          func(ctx context.Context, email string) (*models.User, error)
	ListFunc                func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc              func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateLoginSecurityFunc func(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error
	UpdatePasswordHashFunc  func(ctx context.Context, id, passwordHash string) error
	UpdateStatusFunc        func(ctx context.Context, id, status string) (*models.User, error)
	DeleteFunc              func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateLoginSecurity(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	if m.UpdateLoginSecurityFunc != nil {
		return m.UpdateLoginSecurityFunc(ctx, id, failedAttempts, lockedUntil)
	}
	return nil
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) UpdateStatus(ctx context.Context, id, status string) (*models.User, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc            func(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByTokenHashFunc    func(ctx context.Context, tokenHash string) (*models.Session, error)
	DeleteByTokenHashFunc func(ctx context.Context, tokenHash string) error
	DeleteByUserIDFunc    func(ctx context.Context, userID string) (int64, error)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return session, nil
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if m.DeleteByTokenHashFunc != nil {
		return m.DeleteByTokenHashFunc(ctx, tokenHash)
	}
	return nil
}

func (m *MockSessionRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	if m.DeleteByUserIDFunc != nil {
		return m.DeleteByUserIDFunc(ctx, userID)
	}
	return 0, nil
}

// MockSecurityEventRepository implements SecurityEventRepository for testing
type MockSecurityEventRepository struct {
	CreateFunc                   func(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error)
	QueryFunc                    func(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error)
	FailureCountsByIPFunc        func(ctx context.Context, since time.Time, minCount int) ([]repositories.SubjectCount, error)
	UnauthorizedCountsByUserFunc func(ctx context.Context, since time.Time, minCount int) ([]repositories.SubjectCount, error)
}

func (m *MockSecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	return event, nil
}

func (m *MockSecurityEventRepository) Query(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, filter)
	}
	return []*models.SecurityEvent{}, nil
}

func (m *MockSecurityEventRepository) FailureCountsByIP(ctx context.Context, since time.Time, minCount int) ([]repositories.SubjectCount, error) {
	if m.FailureCountsByIPFunc != nil {
		return m.FailureCountsByIPFunc(ctx, since, minCount)
	}
	return []repositories.SubjectCount{}, nil
}

func (m *MockSecurityEventRepository) UnauthorizedCountsByUser(ctx context.Context, since time.Time, minCount int) ([]repositories.SubjectCount, error) {
	if m.UnauthorizedCountsByUserFunc != nil {
		return m.UnauthorizedCountsByUserFunc(ctx, since, minCount)
	}
	return []repositories.SubjectCount{}, nil
}

// RecordingSecurityRecorder captures events handed to Record so tests can
// assert on the audit trail
type RecordingSecurityRecorder struct {
	mu     sync.Mutex
	Events []*models.SecurityEvent
}

func (r *RecordingSecurityRecorder) Record(ctx context.Context, event *models.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
}

// ByKind returns the recorded events of one kind
func (r *RecordingSecurityRecorder) ByKind(kind string) []*models.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SecurityEvent
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// MockCSRFStore implements CSRFStore for testing
type MockCSRFStore struct {
	GenerateFunc func(userID string) (string, error)
	ValidateFunc func(userID, token string) bool
	DeleteFunc   func(userID string)
}

func (m *MockCSRFStore) Generate(userID string) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(userID)
	}
	return "test-csrf-token", nil
}

func (m *MockCSRFStore) Validate(userID, token string) bool {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(userID, token)
	}
	return true
}

func (m *MockCSRFStore) Delete(userID string) {
	if m.DeleteFunc != nil {
		m.DeleteFunc(userID)
	}
}

// MockTimingWaiter implements TimingWaiter for testing. The default is a
// no-op so tests stay fast; Calls records the succeeded flag of each wait.
type MockTimingWaiter struct {
	WaitFromFunc func(start time.Time, succeeded bool)
	Calls        []bool
}

func (m *MockTimingWaiter) WaitFrom(start time.Time, succeeded bool) {
	m.Calls = append(m.Calls, succeeded)
	if m.WaitFromFunc != nil {
		m.WaitFromFunc(start, succeeded)
	}
}

// MockAlertService implements AlertService for testing
type MockAlertService struct {
	SendAccountLockedAlertFunc func(ctx context.Context, email, ipAddress string, lockedUntil time.Time) error
	SendAnomalyReportFunc      func(ctx context.Context, anomalies []models.Anomaly) error
}

func (m *MockAlertService) SendAccountLockedAlert(ctx context.Context, email, ipAddress string, lockedUntil time.Time) error {
	if m.SendAccountLockedAlertFunc != nil {
		return m.SendAccountLockedAlertFunc(ctx, email, ipAddress, lockedUntil)
	}
	return nil
}

func (m *MockAlertService) SendAnomalyReport(ctx context.Context, anomalies []models.Anomaly) error {
	if m.SendAnomalyReportFunc != nil {
		return m.SendAnomalyReportFunc(ctx, anomalies)
	}
	return nil
}
