package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/memstore"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/internal/seminars"
)

type fixture struct {
	store   *memstore.Store
	svc     *Service
	seminar *models.Seminar
	owner   access.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	owner := access.Actor{UserID: uuid.New(), Role: models.RoleOrganizer}
	sem := store.Seminars.Add(models.Seminar{Title: "Distributed systems", OwnerID: owner.UserID, Capacity: 20})
	agg := seminars.NewAggregator(store.Sessions, store.Seminars, time.UTC, nil)
	svc := NewService(store.Sessions, access.NewChecker(store.Seminars), agg, nil)
	return &fixture{store: store, svc: svc, seminar: sem, owner: owner}
}

func (f *fixture) span(t *testing.T) (*time.Time, *time.Time) {
	t.Helper()
	sem, err := f.store.Seminars.GetByID(context.Background(), f.seminar.ID)
	require.NoError(t, err)
	return sem.StartDate, sem.EndDate
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateRecomputesSeminarSpan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, at := range []time.Time{
		time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 10, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC),
	} {
		_, err := f.svc.Create(ctx, f.owner, f.seminar.ID, Input{ScheduledAt: at, DurationMinutes: 90})
		require.NoError(t, err)
	}

	start, end := f.span(t)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, day(2025, 1, 5), *start)
	assert.Equal(t, day(2025, 2, 10), *end)

	list, err := f.svc.List(ctx, f.seminar.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{list[0].Sequence, list[1].Sequence, list[2].Sequence})
}

func TestUpdateAndDeleteKeepSpanCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.owner, f.seminar.ID, Input{ScheduledAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, f.owner, f.seminar.ID, Input{ScheduledAt: time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	moved := time.Date(2025, 3, 22, 9, 0, 0, 0, time.UTC)
	_, err = f.svc.Update(ctx, f.owner, second.ID, Patch{ScheduledAt: &moved})
	require.NoError(t, err)
	start, end := f.span(t)
	assert.Equal(t, day(2025, 3, 1), *start)
	assert.Equal(t, day(2025, 3, 22), *end)

	require.NoError(t, f.svc.Delete(ctx, f.owner, first.ID))
	start, end = f.span(t)
	assert.Equal(t, day(2025, 3, 22), *start)
	assert.Equal(t, day(2025, 3, 22), *end)

	require.NoError(t, f.svc.Delete(ctx, f.owner, second.ID))
	start, end = f.span(t)
	assert.Nil(t, start)
	assert.Nil(t, end)
}

func TestMutationsRequireManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := access.Actor{UserID: uuid.New(), Role: models.RoleOrganizer}

	_, err := f.svc.Create(ctx, stranger, f.seminar.ID, Input{ScheduledAt: time.Now()})
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))

	sess, err := f.svc.Create(ctx, f.owner, f.seminar.ID, Input{ScheduledAt: time.Now()})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, stranger, sess.ID)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))

	admin := access.Actor{UserID: uuid.New(), Role: models.RoleAdmin}
	assert.NoError(t, f.svc.Delete(ctx, admin, sess.ID))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.owner, f.seminar.ID, Input{})
	assert.True(t, errors.Is(err, apperr.ErrBadRequest))

	_, err = f.svc.Create(context.Background(), f.owner, uuid.New(), Input{ScheduledAt: time.Now()})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
