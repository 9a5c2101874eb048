package seminars

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/apperr"
)

// DateSpan returns the first and last calendar dates among dates, in loc.
// Both are nil when dates is empty.
func DateSpan(dates []time.Time, loc *time.Location) (start, end *time.Time) {
	if len(dates) == 0 {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	lo, hi := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(lo) {
			lo = d
		}
		if d.After(hi) {
			hi = d
		}
	}
	s, e := calendarDate(lo, loc), calendarDate(hi, loc)
	return &s, &e
}

func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SessionDates lists the scheduled times of every session in a seminar.
type SessionDates interface {
	ScheduledDates(ctx context.Context, seminarID uuid.UUID) ([]time.Time, error)
}

// DateRangeWriter persists a seminar's derived span.
type DateRangeWriter interface {
	SetDateRange(ctx context.Context, id uuid.UUID, start, end *time.Time) error
}

// Aggregator recomputes a seminar's start/end date from its current sessions.
// Concurrent runs for one seminar are not serialised; the last write wins and the next
// session mutation corrects any stale span.
type Aggregator struct {
	sessions SessionDates
	seminars DateRangeWriter
	loc      *time.Location
	logger   *zap.Logger
}

// NewAggregator creates an Aggregator. loc decides which calendar day a session falls on.
func NewAggregator(sessions SessionDates, seminars DateRangeWriter, loc *time.Location, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{sessions: sessions, seminars: seminars, loc: loc, logger: logger}
}

// Recompute reads all session dates for seminarID and stores their span.
func (a *Aggregator) Recompute(ctx context.Context, seminarID uuid.UUID) error {
	dates, err := a.sessions.ScheduledDates(ctx, seminarID)
	if err != nil {
		return apperr.Internal("load session dates", err)
	}
	start, end := DateSpan(dates, a.loc)
	if err := a.seminars.SetDateRange(ctx, seminarID, start, end); err != nil {
		return apperr.Internal("store seminar date range", err)
	}
	a.logger.Debug("seminar date range recomputed",
		zap.String("seminar_id", seminarID.String()),
		zap.Int("sessions", len(dates)),
	)
	return nil
}
