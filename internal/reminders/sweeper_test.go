package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/memstore"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/internal/notifications"
)

type bulkCall struct {
	users []uuid.UUID
	msg   notifications.Message
}

type recordingNotifier struct{ calls []bulkCall }

func (n *recordingNotifier) NotifyBulk(_ context.Context, users []uuid.UUID, msg notifications.Message) {
	n.calls = append(n.calls, bulkCall{users, msg})
}

func TestRunRemindsOnceInsideWindow(t *testing.T) {
	store := memstore.New()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	sem := store.Seminars.Add(models.Seminar{Title: "Security", OwnerID: uuid.New(), Capacity: 5, Status: models.SeminarInProgress})
	member := uuid.New()
	store.Enrollments.Add(models.Enrollment{UserID: member, SeminarID: sem.ID, Status: models.EnrollmentApproved})
	store.Enrollments.Add(models.Enrollment{UserID: uuid.New(), SeminarID: sem.ID, Status: models.EnrollmentPending})

	soon := store.Sessions.Add(models.Session{SeminarID: sem.ID, Sequence: 1, ScheduledAt: now.Add(45 * time.Minute), Location: "Lab 3"})
	store.Sessions.Add(models.Session{SeminarID: sem.ID, Sequence: 2, ScheduledAt: now.Add(3 * time.Hour)})
	store.Sessions.Add(models.Session{SeminarID: sem.ID, Sequence: 0, ScheduledAt: now.Add(-10 * time.Minute)})

	n := &recordingNotifier{}
	sw := NewSweeper(store.Sessions, store.Seminars, store.Enrollments, n, time.Hour, nil)

	handled, err := sw.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	require.Len(t, n.calls, 1)
	assert.Equal(t, []uuid.UUID{member}, n.calls[0].users)
	assert.Equal(t, models.NotificationSessionReminder, n.calls[0].msg.Kind)
	assert.Equal(t, "Lab 3", n.calls[0].msg.Body)

	got, err := store.Sessions.GetByID(context.Background(), soon.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RemindedAt)

	handled, err = sw.Run(context.Background(), now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, handled)
	assert.Len(t, n.calls, 1)
}

func TestRunSkipsCancelledSeminar(t *testing.T) {
	store := memstore.New()
	now := time.Now()
	sem := store.Seminars.Add(models.Seminar{Title: "Dropped", OwnerID: uuid.New(), Capacity: 5, Status: models.SeminarCancelled})
	store.Enrollments.Add(models.Enrollment{UserID: uuid.New(), SeminarID: sem.ID, Status: models.EnrollmentApproved})
	sess := store.Sessions.Add(models.Session{SeminarID: sem.ID, Sequence: 1, ScheduledAt: now.Add(10 * time.Minute)})

	n := &recordingNotifier{}
	_, err := NewSweeper(store.Sessions, store.Seminars, store.Enrollments, n, time.Hour, nil).Run(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, n.calls)

	got, _ := store.Sessions.GetByID(context.Background(), sess.ID)
	assert.NotNil(t, got.RemindedAt)
}

func TestScheduleRegistersEntry(t *testing.T) {
	c := cron.New()
	sw := NewSweeper(memstore.New().Sessions, nil, nil, &recordingNotifier{}, 0, nil)
	id, err := sw.Schedule(c, "@every 5m", time.Minute)
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = sw.Schedule(c, "not a spec", time.Minute)
	assert.Error(t, err)
}
