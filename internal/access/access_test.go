package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/memstore"
	"github.com/aura-seminar/backend/internal/models"
)

func TestCanManage(t *testing.T) {
	store := memstore.New()
	owner := uuid.New()
	sem := store.Seminars.Add(models.Seminar{Title: "Go study", OwnerID: owner, Capacity: 10})
	checker := NewChecker(store.Seminars)
	ctx := context.Background()

	ok, err := checker.CanManage(ctx, Actor{UserID: owner, Role: models.RoleOrganizer}, sem.ID)
	require.NoError(t, err)
	assert.True(t, ok, "owner manages")

	ok, err = checker.CanManage(ctx, Actor{UserID: uuid.New(), Role: models.RoleAdmin}, sem.ID)
	require.NoError(t, err)
	assert.True(t, ok, "admin manages")

	ok, err = checker.CanManage(ctx, Actor{UserID: uuid.New(), Role: models.RoleOrganizer}, sem.ID)
	require.NoError(t, err)
	assert.False(t, ok, "other organizer does not")
}

func TestRequireManager(t *testing.T) {
	store := memstore.New()
	sem := store.Seminars.Add(models.Seminar{Title: "Go study", OwnerID: uuid.New(), Capacity: 10})
	checker := NewChecker(store.Seminars)
	ctx := context.Background()

	_, err := checker.RequireManager(ctx, Actor{UserID: uuid.New(), Role: models.RoleMember}, sem.ID)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))

	_, err = checker.RequireManager(ctx, Actor{UserID: uuid.New(), Role: models.RoleAdmin}, uuid.New())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	got, err := checker.RequireManager(ctx, Actor{UserID: sem.OwnerID}, sem.ID)
	require.NoError(t, err)
	assert.Equal(t, sem.ID, got.ID)
}

func TestNilActorNeverMatchesOwner(t *testing.T) {
	store := memstore.New()
	sem := store.Seminars.Add(models.Seminar{Title: "orphan", Capacity: 1})
	checker := NewChecker(store.Seminars)

	ok, err := checker.CanManage(context.Background(), Actor{}, sem.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
