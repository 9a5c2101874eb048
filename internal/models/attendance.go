package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus is a user's recorded presence at a session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid reports whether s is a known attendance status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// Attendance is the single row per (user, session). A missing row means absent.
type Attendance struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	SessionID uuid.UUID        `json:"session_id"`
	Status    AttendanceStatus `json:"status"`
	CheckedAt time.Time        `json:"checked_at"`
	CheckedBy uuid.UUID        `json:"checked_by"`
	Notes     string           `json:"notes,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}
