package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/memstore"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/internal/notifications"
	"github.com/aura-seminar/backend/pkg/queue"
)

func notificationJob(t *testing.T, p queue.NotificationPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return &queue.Job{ID: uuid.NewString(), Type: queue.JobTypeNotification, Payload: raw, CreatedAt: time.Now()}
}

func TestProcessWritesInbox(t *testing.T) {
	store := memstore.New()
	p := NewNotificationProcessor(notifications.NewInboxSink(store.Notifications), nil, nil)
	users := []uuid.UUID{uuid.New(), uuid.New()}

	err := p.Process(context.Background(), notificationJob(t, queue.NotificationPayload{
		UserIDs: users,
		Kind:    string(models.NotificationSessionReminder),
		Title:   "Session 2 starts in an hour",
		Data:    json.RawMessage(`{"session_id":"x"}`),
	}))
	require.NoError(t, err)

	rows := store.Notifications.All()
	require.Len(t, rows, 2)
	assert.Equal(t, models.NotificationSessionReminder, rows[0].Kind)
	assert.JSONEq(t, `{"session_id":"x"}`, string(rows[0].Payload))
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := NewNotificationProcessor(notifications.NewInboxSink(memstore.New().Notifications), nil, nil)
	err := p.Process(context.Background(), &queue.Job{ID: "1", Type: "recording_upload"})
	assert.Error(t, err)
}

func TestProcessSurfacesInboxFailure(t *testing.T) {
	store := memstore.New()
	store.Notifications.Fail = true
	p := NewNotificationProcessor(notifications.NewInboxSink(store.Notifications), nil, nil)

	err := p.Process(context.Background(), notificationJob(t, queue.NotificationPayload{
		UserIDs: []uuid.UUID{uuid.New()},
		Kind:    string(models.NotificationAnnouncement),
	}))
	assert.True(t, errors.Is(err, memstore.ErrInjected))
}

type scriptedQueue struct {
	jobs    []*queue.Job
	retried []*queue.Job
	requeue bool
	cancel  context.CancelFunc
}

func (q *scriptedQueue) Dequeue(ctx context.Context) (*queue.Job, string, error) {
	if len(q.jobs) == 0 {
		q.cancel()
		return nil, "", ctx.Err()
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, queue.QueueNotifications, nil
}

func (q *scriptedQueue) Retry(_ context.Context, job *queue.Job) error {
	q.retried = append(q.retried, job)
	if q.requeue {
		job.Attempt++
		q.jobs = append(q.jobs, job)
	}
	return nil
}

// flakyInbox writes at most limit rows per call and fails the first call that hits the limit.
type flakyInbox struct {
	rows   []models.Notification
	limit  int
	failed bool
}

func (f *flakyInbox) InsertBulk(_ context.Context, list []models.Notification) (int, error) {
	if !f.failed && len(list) > f.limit {
		f.failed = true
		f.rows = append(f.rows, list[:f.limit]...)
		return f.limit, memstore.ErrInjected
	}
	f.rows = append(f.rows, list...)
	return len(list), nil
}

func TestRunRetriesFailedJobs(t *testing.T) {
	store := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())
	bad := &queue.Job{ID: "bad", Type: "unknown"}
	good := notificationJob(t, queue.NotificationPayload{UserIDs: []uuid.UUID{uuid.New()}, Kind: "announcement"})
	q := &scriptedQueue{jobs: []*queue.Job{bad, good}, cancel: cancel}

	p := NewNotificationProcessor(notifications.NewInboxSink(store.Notifications), q, nil)
	p.backoff = time.Millisecond
	p.Run(ctx)

	require.Len(t, q.retried, 1)
	assert.Equal(t, "bad", q.retried[0].ID)
	assert.Len(t, store.Notifications.All(), 1)
}

func TestRetryAfterPartialDeliveryWritesEachRecipientOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	recipients := make([]uuid.UUID, 300)
	for i := range recipients {
		recipients[i] = uuid.New()
	}
	job := notificationJob(t, queue.NotificationPayload{UserIDs: recipients, Kind: string(models.NotificationAnnouncement)})
	q := &scriptedQueue{jobs: []*queue.Job{job}, requeue: true, cancel: cancel}
	inbox := &flakyInbox{limit: 200}

	p := NewNotificationProcessor(notifications.NewInboxSink(inbox), q, nil)
	p.backoff = time.Millisecond
	p.Run(ctx)

	require.Len(t, q.retried, 1)
	seen := map[uuid.UUID]int{}
	for _, n := range inbox.rows {
		seen[n.UserID]++
	}
	assert.Len(t, inbox.rows, 300)
	assert.Len(t, seen, 300)
	for _, id := range recipients {
		assert.Equal(t, 1, seen[id])
	}
}
