package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLimiter(cfg Config) (*Limiter, *time.Time) {
	l := New(cfg)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiterAllowsUpToMaxRequests(t *testing.T) {
	l, _ := testLimiter(Config{
		ClassLogin: {MaxRequests: 10, Window: 15 * time.Minute},
	})

	for i := 0; i < 10; i++ {
		res := l.Check(ClassLogin, "203.0.113.7")
		assert.True(t, res.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 10, res.Limit)
		assert.Equal(t, 9-i, res.Remaining)
	}

	// 11th request within the window is denied
	res := l.Check(ClassLogin, "203.0.113.7")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestLimiterStartsFreshWindowAfterReset(t *testing.T) {
	l, now := testLimiter(Config{
		ClassLogin: {MaxRequests: 10, Window: 15 * time.Minute},
	})

	var resetAt time.Time
	for i := 0; i < 10; i++ {
		resetAt = l.Check(ClassLogin, "203.0.113.7").ResetAt
	}
	assert.False(t, l.Check(ClassLogin, "203.0.113.7").Allowed)

	// 1ms past the reset time starts a new window with count=1
	*now = resetAt.Add(1 * time.Millisecond)
	res := l.Check(ClassLogin, "203.0.113.7")
	assert.True(t, res.Allowed)
	assert.Equal(t, 9, res.Remaining)
	assert.Equal(t, now.Add(15*time.Minute), res.ResetAt)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l, _ := testLimiter(Config{
		ClassLogin:          {MaxRequests: 1, Window: time.Minute},
		ClassGenericDefault: {MaxRequests: 5, Window: time.Minute},
	})

	assert.True(t, l.Check(ClassLogin, "10.0.0.1").Allowed)
	assert.False(t, l.Check(ClassLogin, "10.0.0.1").Allowed)

	// Different IP, same class
	assert.True(t, l.Check(ClassLogin, "10.0.0.2").Allowed)

	// Same IP, different class
	assert.True(t, l.Check(ClassGenericDefault, "10.0.0.1").Allowed)
}

func TestLimiterUnknownClassFallsBackToDefault(t *testing.T) {
	l, _ := testLimiter(Config{
		ClassGenericDefault: {MaxRequests: 2, Window: time.Minute},
	})

	assert.True(t, l.Check(Class("unknown"), "10.0.0.1").Allowed)
	assert.True(t, l.Check(Class("unknown"), "10.0.0.1").Allowed)
	assert.False(t, l.Check(Class("unknown"), "10.0.0.1").Allowed)
}

func TestLimiterSweepRemovesExpiredCounters(t *testing.T) {
	l, now := testLimiter(Config{
		ClassLogin:          {MaxRequests: 10, Window: time.Minute},
		ClassGenericDefault: {MaxRequests: 10, Window: time.Hour},
	})

	l.Check(ClassLogin, "10.0.0.1")
	l.Check(ClassGenericDefault, "10.0.0.1")

	*now = now.Add(2 * time.Minute)
	removed := l.Sweep()

	assert.Equal(t, 1, removed)
	assert.Len(t, l.counters, 1)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   Class
	}{
		{"POST", "/auth/login", ClassLogin},
		{"POST", "/auth/register", ClassRegister},
		{"POST", "/posts", ClassPostCreate},
		{"POST", "/posts/42/comments", ClassCommentCreate},
		{"POST", "/messages", ClassMessageSend},
		{"POST", "/conversations/7/messages", ClassMessageSend},
		{"GET", "/messages", ClassGenericPolling},
		{"GET", "/notifications", ClassGenericPolling},
		{"GET", "/users/42", ClassGenericDefault},
		{"POST", "/auth/logout", ClassGenericDefault},
		{"DELETE", "/posts/42", ClassGenericDefault},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.method, tt.path), "%s %s", tt.method, tt.path)
	}
}
