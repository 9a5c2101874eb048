package models

import (
	"time"

	"github.com/google/uuid"
)

// SeminarStatus is the lifecycle state of a seminar.
type SeminarStatus string

const (
	SeminarDraft      SeminarStatus = "draft"
	SeminarRecruiting SeminarStatus = "recruiting"
	SeminarInProgress SeminarStatus = "in_progress"
	SeminarCompleted  SeminarStatus = "completed"
	SeminarCancelled  SeminarStatus = "cancelled"
)

// Valid reports whether s is a known seminar status.
func (s SeminarStatus) Valid() bool {
	switch s {
	case SeminarDraft, SeminarRecruiting, SeminarInProgress, SeminarCompleted, SeminarCancelled:
		return true
	}
	return false
}

// Seminar is a recurring group that members enroll in.
// StartDate and EndDate are derived from the seminar's sessions and are nil when it has none.
type Seminar struct {
	ID               uuid.UUID     `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	OwnerID          uuid.UUID     `json:"owner_id"`
	Capacity         int           `json:"capacity"`
	Status           SeminarStatus `json:"status"`
	StartDate        *time.Time    `json:"start_date,omitempty"`
	EndDate          *time.Time    `json:"end_date,omitempty"`
	ApplicationStart *time.Time    `json:"application_start,omitempty"`
	ApplicationEnd   *time.Time    `json:"application_end,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
