package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/creatorsgarden/garden/internal/models"
	"github.com/creatorsgarden/garden/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_INTEGRATION") != "" {
		os.Exit(0)
	}

	ctx := context.Background()
	var err error
	testDB, err = SetupTestDatabase(ctx)
	if err != nil {
		panic(err)
	}

	code := m.Run()
	testDB.Teardown(ctx)
	os.Exit(code)
}

func createTestUser(t *testing.T, repo *repositories.UserRepository, email string) *models.User {
	t.Helper()
	user, err := repo.Create(context.Background(), &models.User{
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvabcdefghijklmnopqrstuvabcdefghiu",
		Name:         "Test User",
	})
	require.NoError(t, err)
	return user
}

func TestUserRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))
	repo := repositories.NewUserRepository(testDB.DB)

	user := createTestUser(t, repo, "alice@example.com")
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, models.StatusActive, user.Status)
	assert.Zero(t, user.FailedLoginAttempts)
	assert.Nil(t, user.LockedUntil)

	// Duplicate email maps to the conflict sentinel.
	_, err := repo.Create(ctx, &models.User{
		Email:        "alice@example.com",
		PasswordHash: "x",
		Name:         "Duplicate",
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	// Lockout state round-trips, including clearing back to nil.
	lockedUntil := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.UpdateLoginSecurity(ctx, user.ID, 5, &lockedUntil))

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 5, got.FailedLoginAttempts)
	require.NotNil(t, got.LockedUntil)
	assert.WithinDuration(t, lockedUntil, *got.LockedUntil, time.Second)

	require.NoError(t, repo.UpdateLoginSecurity(ctx, user.ID, 0, nil))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
	assert.Nil(t, got.LockedUntil)

	// Status updates return the fresh row.
	suspended, err := repo.UpdateStatus(ctx, user.ID, models.StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, suspended.Status)

	assert.ErrorIs(t, repo.UpdateLoginSecurity(ctx, "00000000-0000-0000-0000-000000000000", 0, nil), models.ErrNotFound)
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))

	userRepo := repositories.NewUserRepository(testDB.DB)
	sessionRepo := repositories.NewSessionRepository(testDB.DB)
	user := createTestUser(t, userRepo, "bob@example.com")

	live, err := sessionRepo.Create(ctx, &models.Session{
		UserID:    user.ID,
		TokenHash: "hash-live",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = sessionRepo.Create(ctx, &models.Session{
		UserID:    user.ID,
		TokenHash: "hash-expired",
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	got, err := sessionRepo.GetByTokenHash(ctx, "hash-live")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
	assert.Equal(t, user.ID, got.UserID)

	deleted, err := sessionRepo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = sessionRepo.GetByTokenHash(ctx, "hash-expired")
	assert.ErrorIs(t, err, models.ErrNotFound)

	count, err := sessionRepo.DeleteByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSecurityEventRepository_QueryAndAggregate(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))

	userRepo := repositories.NewUserRepository(testDB.DB)
	eventRepo := repositories.NewSecurityEventRepository(testDB.DB)
	user := createTestUser(t, userRepo, "carol@example.com")

	// A noisy IP with many failures and a quiet one with a few.
	for i := 0; i < 21; i++ {
		_, err := eventRepo.Create(ctx, &models.SecurityEvent{
			Kind:      models.EventLoginFailure,
			Severity:  models.SeverityMedium,
			Email:     &user.Email,
			IPAddress: "198.51.100.9",
			Detail:    models.EventDetail{"reason": "invalid_password"},
		})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := eventRepo.Create(ctx, &models.SecurityEvent{
			Kind:      models.EventLoginFailure,
			Severity:  models.SeverityMedium,
			IPAddress: "203.0.113.7",
		})
		require.NoError(t, err)
	}
	_, err := eventRepo.Create(ctx, &models.SecurityEvent{
		Kind:      models.EventLoginSuccess,
		Severity:  models.SeverityLow,
		UserID:    &user.ID,
		IPAddress: "203.0.113.7",
	})
	require.NoError(t, err)

	// Filtered query only sees the matching kind.
	events, err := eventRepo.Query(ctx, models.SecurityEventFilter{Kind: models.EventLoginSuccess})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, user.ID, *events[0].UserID)

	// Default limit caps the result set.
	events, err = eventRepo.Query(ctx, models.SecurityEventFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, events, 10)

	// Only the noisy IP crosses the threshold.
	counts, err := eventRepo.FailureCountsByIP(ctx, time.Now().Add(-15*time.Minute), 20)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "198.51.100.9", counts[0].Subject)
	assert.Equal(t, 21, counts[0].Count)

	// Retention removes nothing when the cutoff predates the data.
	removed, err := eventRepo.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)
}
