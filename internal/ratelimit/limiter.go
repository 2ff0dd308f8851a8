package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Class identifies a route classification bucket for rate limiting.
type Class string

const (
	ClassLogin          Class = "login"
	ClassRegister       Class = "register"
	ClassPostCreate     Class = "post_create"
	ClassCommentCreate  Class = "comment_create"
	ClassMessageSend    Class = "message_send"
	ClassGenericPolling Class = "generic_polling"
	ClassGenericDefault Class = "generic_default"
)

// Classes returns every known classification bucket.
func Classes() []Class {
	return []Class{
		ClassLogin,
		ClassRegister,
		ClassPostCreate,
		ClassCommentCreate,
		ClassMessageSend,
		ClassGenericPolling,
		ClassGenericDefault,
	}
}

// Bucket holds the limit for one classification bucket.
type Bucket struct {
	MaxRequests int
	Window      time.Duration
}

// Config maps classification buckets to their limits.
type Config map[Class]Bucket

// ProductionProfile returns the strict per-class limits.
func ProductionProfile() Config {
	return Config{
		ClassLogin:          {MaxRequests: 10, Window: 15 * time.Minute},
		ClassRegister:       {MaxRequests: 5, Window: 1 * time.Hour},
		ClassPostCreate:     {MaxRequests: 20, Window: 10 * time.Minute},
		ClassCommentCreate:  {MaxRequests: 30, Window: 10 * time.Minute},
		ClassMessageSend:    {MaxRequests: 60, Window: 10 * time.Minute},
		ClassGenericPolling: {MaxRequests: 120, Window: 1 * time.Minute},
		ClassGenericDefault: {MaxRequests: 300, Window: 15 * time.Minute},
	}
}

// DevelopmentProfile returns relaxed limits for local development.
func DevelopmentProfile() Config {
	return Config{
		ClassLogin:          {MaxRequests: 100, Window: 15 * time.Minute},
		ClassRegister:       {MaxRequests: 50, Window: 1 * time.Hour},
		ClassPostCreate:     {MaxRequests: 200, Window: 10 * time.Minute},
		ClassCommentCreate:  {MaxRequests: 300, Window: 10 * time.Minute},
		ClassMessageSend:    {MaxRequests: 600, Window: 10 * time.Minute},
		ClassGenericPolling: {MaxRequests: 1200, Window: 1 * time.Minute},
		ClassGenericDefault: {MaxRequests: 3000, Window: 15 * time.Minute},
	}
}

// Result is the outcome of a single rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before the window
// resets
func (r Result) RetryAfter() time.Duration {
	return time.Until(r.ResetAt)
}

type counter struct {
	count   int
	resetAt time.Time
}

// Limiter implements fixed-window request counting keyed by
// (classification bucket, client IP). Counters live in process memory only:
// limits reset on restart and are not shared across instances.
type Limiter struct {
	mu       sync.Mutex
	cfg      Config
	counters map[string]*counter
	now      func() time.Time
}

// New creates a Limiter with the given per-class configuration.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:      cfg,
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// Check counts one request against the (class, ip) window and reports whether
// it is allowed. A new window starts at the first request after the previous
// window's reset time.
func (l *Limiter) Check(class Class, ip string) Result {
	bucket, ok := l.cfg[class]
	if !ok {
		bucket = l.cfg[ClassGenericDefault]
	}
	key := string(class) + "|" + ip

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &counter{count: 1, resetAt: now.Add(bucket.Window)}
		l.counters[key] = c
		return Result{Allowed: true, Limit: bucket.MaxRequests, Remaining: bucket.MaxRequests - 1, ResetAt: c.resetAt}
	}

	if c.count >= bucket.MaxRequests {
		return Result{Allowed: false, Limit: bucket.MaxRequests, Remaining: 0, ResetAt: c.resetAt}
	}

	c.count++
	return Result{Allowed: true, Limit: bucket.MaxRequests, Remaining: bucket.MaxRequests - c.count, ResetAt: c.resetAt}
}

// Sweep removes counters whose window has expired and returns how many were
// removed. Bounds memory growth; correctness never depends on it because
// Check resets expired windows lazily.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, c := range l.counters {
		if !now.Before(c.resetAt) {
			delete(l.counters, key)
			removed++
		}
	}
	return removed
}

// StartSweep runs Sweep on the given interval until the context is cancelled.
func (l *Limiter) StartSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Classify maps an inbound request to its classification bucket.
// Routes for platform services that mount behind this gate (posts, comments,
// messaging) are classified here even though this service does not serve them.
func Classify(method, path string) Class {
	switch method {
	case "POST":
		switch {
		case path == "/auth/login":
			return ClassLogin
		case path == "/auth/register":
			return ClassRegister
		case path == "/posts":
			return ClassPostCreate
		case strings.HasSuffix(path, "/comments"):
			return ClassCommentCreate
		case path == "/messages" || strings.HasSuffix(path, "/messages"):
			return ClassMessageSend
		}
	case "GET":
		if strings.HasPrefix(path, "/messages") || strings.HasPrefix(path, "/notifications") {
			return ClassGenericPolling
		}
	}
	return ClassGenericDefault
}
