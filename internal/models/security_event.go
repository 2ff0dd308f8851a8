package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Security event kinds
const (
	EventLoginAttempt       = "login_attempt"
	EventLoginFailure       = "login_failure"
	EventLoginSuccess       = "login_success"
	EventAccountLocked      = "account_locked"
	EventPasswordChange     = "password_change"
	EventAccountSuspended   = "account_suspended"
	EventAccountActivated   = "account_activated"
	EventUnauthorizedAccess = "unauthorized_access"
	EventAdminAction        = "admin_action"
)

// Severity tiers
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// SecurityEvent is one append-only entry in the security log.
type SecurityEvent struct {
	ID        string      `json:"id" db:"id"`
	Kind      string      `json:"kind" db:"kind"`
	Severity  string      `json:"severity" db:"severity"`
	UserID    *string     `json:"user_id,omitempty" db:"user_id"`
	Email     *string     `json:"email,omitempty" db:"email"`
	IPAddress string      `json:"ip_address" db:"ip_address"`
	UserAgent string      `json:"user_agent,omitempty" db:"user_agent"`
	Detail    EventDetail `json:"detail,omitempty" db:"detail"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// SecurityEventFilter narrows a security log query. Zero-value fields are
// ignored; Limit defaults to 100 and is capped at 100.
type SecurityEventFilter struct {
	Limit    int
	Kind     string
	Severity string
	UserID   string
	From     *time.Time
	To       *time.Time
}

// Anomaly is one flagged threshold violation from the anomaly scan.
type Anomaly struct {
	Kind    string        `json:"kind"`    // event kind that tripped the threshold
	Subject string        `json:"subject"` // offending IP or user id
	Count   int           `json:"count"`
	Window  time.Duration `json:"window"`
}

// EventDetail holds free-form context for a security event
type EventDetail map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (d *EventDetail) Scan(value interface{}) error {
	if value == nil {
		*d = make(EventDetail)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*d = EventDetail(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (d EventDetail) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}
