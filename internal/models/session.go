package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one scheduled meeting of a seminar.
type Session struct {
	ID              uuid.UUID   `json:"id"`
	SeminarID       uuid.UUID   `json:"seminar_id"`
	Sequence        int         `json:"sequence"`
	ScheduledAt     time.Time   `json:"scheduled_at"`
	DurationMinutes int         `json:"duration_minutes"`
	Location        string      `json:"location,omitempty"`
	Credential      *Credential `json:"-"`
	RemindedAt      *time.Time  `json:"reminded_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Credential is the single active check-in credential stored on a session.
// Token and NumericCode authenticate the same credential instance.
type Credential struct {
	Token       string    `json:"token"`
	NumericCode string    `json:"numeric_code"`
	ExpiresAt   time.Time `json:"expires_at"`
	IssuedBy    uuid.UUID `json:"issued_by"`
	IssuedAt    time.Time `json:"issued_at"`
}

// ExpiredAt reports whether the credential has lapsed at now.
// A credential is still valid at the exact expiry instant.
func (c *Credential) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
