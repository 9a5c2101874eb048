package seminars

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/memstore"
	"github.com/aura-seminar/backend/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateSpanEmpty(t *testing.T) {
	start, end := DateSpan(nil, time.UTC)
	assert.Nil(t, start)
	assert.Nil(t, end)
}

func TestDateSpanDiscardsTimeOfDay(t *testing.T) {
	dates := []time.Time{
		time.Date(2025, 1, 20, 18, 30, 0, 0, time.UTC),
		time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 5, 23, 59, 0, 0, time.UTC),
	}
	start, end := DateSpan(dates, time.UTC)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, date(2025, 1, 5), *start)
	assert.Equal(t, date(2025, 2, 10), *end)
}

func TestDateSpanUsesLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	// 2025-03-01 20:00 UTC is already 2025-03-02 in KST.
	start, _ := DateSpan([]time.Time{time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)}, seoul)
	assert.Equal(t, date(2025, 3, 2), *start)
}

func TestAggregatorRecompute(t *testing.T) {
	store := memstore.New()
	sem := store.Seminars.Add(models.Seminar{Title: "Distributed systems", OwnerID: uuid.New(), Capacity: 20})
	var ids []uuid.UUID
	for i, d := range []time.Time{date(2025, 1, 20), date(2025, 2, 10), date(2025, 1, 5)} {
		s := store.Sessions.Add(models.Session{SeminarID: sem.ID, Sequence: i + 1, ScheduledAt: d.Add(10 * time.Hour)})
		ids = append(ids, s.ID)
	}
	agg := NewAggregator(store.Sessions, store.Seminars, time.UTC, nil)
	ctx := context.Background()

	require.NoError(t, agg.Recompute(ctx, sem.ID))
	got, _ := store.Seminars.GetByID(ctx, sem.ID)
	assert.Equal(t, date(2025, 1, 5), *got.StartDate)
	assert.Equal(t, date(2025, 2, 10), *got.EndDate)

	for _, id := range ids {
		require.NoError(t, store.Sessions.Delete(ctx, id))
	}
	require.NoError(t, agg.Recompute(ctx, sem.ID))
	got, _ = store.Seminars.GetByID(ctx, sem.ID)
	assert.Nil(t, got.StartDate)
	assert.Nil(t, got.EndDate)
}
