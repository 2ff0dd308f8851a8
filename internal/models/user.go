package models

import (
	"time"
)

// Account statuses
const (
	StatusActive      = "active"
	StatusSuspended   = "suspended"
	StatusDeactivated = "deactivated"
)

type User struct {
	ID                  string
	Email               string
	PasswordHash        string // bcrypt digest, or legacy plaintext until first successful login
	Name                string
	Role                string // "user", "admin"
	Status              string // "active", "suspended", "deactivated"
	FailedLoginAttempts int
	LockedUntil         *time.Time // Lock expiry; nil when unlocked
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether the account lock is still in effect at the given time.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
