package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationKind identifies why a notification was sent.
type NotificationKind string

const (
	NotificationEnrollmentDecided NotificationKind = "enrollment_decided"
	NotificationRoleChanged       NotificationKind = "role_changed"
	NotificationAnnouncement      NotificationKind = "announcement"
	NotificationPermissionGranted NotificationKind = "permission_granted"
	NotificationSessionReminder   NotificationKind = "session_reminder"
)

// Notification is one inbox row for one recipient.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body,omitempty"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
