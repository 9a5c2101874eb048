package models

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentStatus is the approval state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentApproved  EnrollmentStatus = "approved"
	EnrollmentRejected  EnrollmentStatus = "rejected"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Enrollment is a user's membership request for a seminar (unique per user+seminar).
type Enrollment struct {
	ID         uuid.UUID        `json:"id"`
	UserID     uuid.UUID        `json:"user_id"`
	SeminarID  uuid.UUID        `json:"seminar_id"`
	Status     EnrollmentStatus `json:"status"`
	AppliedAt  time.Time        `json:"applied_at"`
	ApprovedAt *time.Time       `json:"approved_at,omitempty"`
	ApprovedBy *uuid.UUID       `json:"approved_by,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// EnrollmentStats is the per-seminar capacity summary.
type EnrollmentStats struct {
	SeminarID uuid.UUID `json:"seminar_id"`
	Capacity  int       `json:"capacity"`
	Pending   int       `json:"pending"`
	Approved  int       `json:"approved"`
	Rejected  int       `json:"rejected"`
	Cancelled int       `json:"cancelled"`
	Remaining int       `json:"remaining"`
}
