package enrollments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/memstore"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/internal/notifications"
)

type sent struct {
	userID uuid.UUID
	msg    notifications.Message
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, msg notifications.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{userID, msg})
}

type fixture struct {
	store    *memstore.Store
	svc      *Service
	notifier *recordingNotifier
	seminar  *models.Seminar
	owner    access.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	owner := access.Actor{UserID: uuid.New(), Role: models.RoleOrganizer}
	sem := store.Seminars.Add(models.Seminar{Title: "Databases", OwnerID: owner.UserID, Capacity: 2})
	n := &recordingNotifier{}
	return &fixture{
		store:    store,
		svc:      NewService(store.Enrollments, store.Seminars, n, nil),
		notifier: n,
		seminar:  sem,
		owner:    owner,
	}
}

func TestRequestIsUniquePerUserAndSeminar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	e, err := f.svc.Request(ctx, user, f.seminar.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPending, e.Status)
	assert.False(t, e.AppliedAt.IsZero())

	for i := 0; i < 3; i++ {
		_, err = f.svc.Request(ctx, user, f.seminar.ID)
		assert.True(t, errors.Is(err, apperr.ErrConflict))
	}
	assert.Equal(t, 1, f.store.Enrollments.Len())
}

func TestConcurrentRequestsCreateOneRow(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	conflicts := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Request(context.Background(), user, f.seminar.ID)
			if errors.Is(err, apperr.ErrConflict) {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.store.Enrollments.Len())
	assert.Equal(t, 9, conflicts)
}

func TestRequestUnknownSeminar(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Request(context.Background(), uuid.New(), uuid.New())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestDecideApproveAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fixed := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	e, err := f.svc.Request(ctx, uuid.New(), f.seminar.ID)
	require.NoError(t, err)

	approved, err := f.svc.Decide(ctx, f.owner, e.ID, models.EnrollmentApproved)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, fixed, *approved.ApprovedAt)
	assert.Equal(t, f.owner.UserID, *approved.ApprovedBy)

	rejected, err := f.svc.Decide(ctx, f.owner, e.ID, models.EnrollmentRejected)
	require.NoError(t, err)
	assert.Nil(t, rejected.ApprovedAt)
	assert.Nil(t, rejected.ApprovedBy)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, e.UserID, f.notifier.sent[0].userID)
	assert.Equal(t, models.NotificationEnrollmentDecided, f.notifier.sent[0].msg.Kind)
}

func TestDecideSameStatusDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.Request(ctx, uuid.New(), f.seminar.ID)
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, f.owner, e.ID, models.EnrollmentApproved)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, f.owner, e.ID, models.EnrollmentApproved)
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1)
}

func TestDecideErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.Request(ctx, uuid.New(), f.seminar.ID)
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, f.owner, e.ID, models.EnrollmentCancelled)
	assert.True(t, errors.Is(err, apperr.ErrBadRequest), "only approved/rejected are decisions")

	_, err = f.svc.Decide(ctx, f.owner, uuid.New(), models.EnrollmentApproved)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	stranger := access.Actor{UserID: uuid.New(), Role: models.RoleOrganizer}
	_, err = f.svc.Decide(ctx, stranger, e.ID, models.EnrollmentApproved)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))

	admin := access.Actor{UserID: uuid.New(), Role: models.RoleAdmin}
	_, err = f.svc.Decide(ctx, admin, e.ID, models.EnrollmentApproved)
	assert.NoError(t, err)

	_, err = f.svc.Cancel(ctx, access.Actor{UserID: e.UserID}, e.ID)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, f.owner, e.ID, models.EnrollmentRejected)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestDecideSucceedsWhenNotificationFails(t *testing.T) {
	store := memstore.New()
	store.Notifications.Fail = true
	owner := access.Actor{UserID: uuid.New(), Role: models.RoleOrganizer}
	sem := store.Seminars.Add(models.Seminar{Title: "Databases", OwnerID: owner.UserID, Capacity: 2})
	d := notifications.NewDispatcher(notifications.NewInboxSink(store.Notifications), time.Second, nil)
	svc := NewService(store.Enrollments, store.Seminars, d, nil)
	ctx := context.Background()

	e, err := svc.Request(ctx, uuid.New(), sem.ID)
	require.NoError(t, err)
	_, err = svc.Decide(ctx, owner, e.ID, models.EnrollmentApproved)
	require.NoError(t, err)
	d.Close()

	got, err := store.Enrollments.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentApproved, got.Status)
	assert.Empty(t, store.Notifications.All())
}

func TestCancelOnlyByApplicant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.Request(ctx, uuid.New(), f.seminar.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.owner, e.ID)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))

	got, err := f.svc.Cancel(ctx, access.Actor{UserID: e.UserID, Role: models.RoleMember}, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCancelled, got.Status)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, st := range []models.EnrollmentStatus{
		models.EnrollmentApproved, models.EnrollmentApproved, models.EnrollmentApproved,
		models.EnrollmentPending, models.EnrollmentRejected,
	} {
		f.store.Enrollments.Add(models.Enrollment{UserID: uuid.New(), SeminarID: f.seminar.ID, Status: st})
	}

	st, err := f.svc.Stats(ctx, f.seminar.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Capacity)
	assert.Equal(t, 3, st.Approved)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.Rejected)
	assert.Equal(t, 0, st.Remaining, "over-approved seminars report no seats, never negative")

	_, err = f.svc.Stats(ctx, uuid.New())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestListRequiresManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Request(ctx, uuid.New(), f.seminar.ID)
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.owner, f.seminar.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.List(ctx, access.Actor{UserID: uuid.New(), Role: models.RoleMember}, f.seminar.ID)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))
}
