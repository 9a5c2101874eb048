package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/queue"
)

// Inserter appends notifications to the inbox and reports how many were written.
type Inserter interface {
	InsertBulk(ctx context.Context, list []models.Notification) (int, error)
}

// PartialError reports a delivery that stopped after the first Delivered recipients were written.
type PartialError struct {
	Delivered int
	Total     int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("inserted %d of %d notifications: %v", e.Delivered, e.Total, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// InboxSink writes one inbox row per recipient.
type InboxSink struct {
	store Inserter
}

// NewInboxSink creates an InboxSink.
func NewInboxSink(store Inserter) *InboxSink {
	return &InboxSink{store: store}
}

// Deliver inserts the rows in recipient order. Rows written before a failure stay written
// and the failure is a *PartialError.
func (s *InboxSink) Deliver(ctx context.Context, userIDs []uuid.UUID, msg Message) error {
	payload, err := msg.payload()
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	list := make([]models.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		list = append(list, models.Notification{
			UserID:  id,
			Kind:    msg.Kind,
			Title:   msg.Title,
			Body:    msg.Body,
			Payload: payload,
		})
	}
	n, err := s.store.InsertBulk(ctx, list)
	if err != nil {
		return &PartialError{Delivered: n, Total: len(list), Err: err}
	}
	return nil
}

// Enqueuer pushes notification jobs onto the worker queue.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, payload queue.NotificationPayload) error
}

// QueueSink hands messages to the background worker, which writes them with an InboxSink.
type QueueSink struct {
	queue Enqueuer
}

// NewQueueSink creates a QueueSink.
func NewQueueSink(q Enqueuer) *QueueSink {
	return &QueueSink{queue: q}
}

// Deliver enqueues one job for all recipients.
func (s *QueueSink) Deliver(ctx context.Context, userIDs []uuid.UUID, msg Message) error {
	payload, err := msg.payload()
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	return s.queue.EnqueueNotification(ctx, queue.NotificationPayload{
		UserIDs: userIDs,
		Kind:    string(msg.Kind),
		Title:   msg.Title,
		Body:    msg.Body,
		Data:    payload,
	})
}
