package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/models"
)

// ErrDuplicateSequence is returned by a store when (seminar, sequence) is already taken.
var ErrDuplicateSequence = errors.New("sessions: duplicate sequence")

// Store is the session persistence used by Service.
type Store interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Session, error)
	Update(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Recomputer refreshes a seminar's derived date span.
type Recomputer interface {
	Recompute(ctx context.Context, seminarID uuid.UUID) error
}

// Input carries the writable fields of a session.
type Input struct {
	Sequence        int
	ScheduledAt     time.Time
	DurationMinutes int
	Location        string
}

// Patch carries optional updates; nil fields are left unchanged.
type Patch struct {
	Sequence        *int
	ScheduledAt     *time.Time
	DurationMinutes *int
	Location        *string
}

// Service manages sessions and keeps the owning seminar's date span current.
type Service struct {
	store      Store
	checker    *access.Checker
	aggregator Recomputer
	logger     *zap.Logger
}

// NewService creates a session service.
func NewService(store Store, checker *access.Checker, aggregator Recomputer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, checker: checker, aggregator: aggregator, logger: logger}
}

func validate(in Input) error {
	if in.ScheduledAt.IsZero() {
		return apperr.BadRequest("scheduled_at is required")
	}
	if in.Sequence < 0 {
		return apperr.BadRequest("sequence must not be negative")
	}
	if in.DurationMinutes < 0 {
		return apperr.BadRequest("duration_minutes must not be negative")
	}
	return nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, ErrDuplicateSequence) {
		return apperr.Conflict("a session with this sequence already exists")
	}
	return apperr.Internal(op, err)
}

// Create adds a session to a seminar. A zero Sequence takes the next free number.
func (s *Service) Create(ctx context.Context, actor access.Actor, seminarID uuid.UUID, in Input) (*models.Session, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if _, err := s.checker.RequireManager(ctx, actor, seminarID); err != nil {
		return nil, err
	}
	if in.Sequence == 0 {
		existing, err := s.store.ListBySeminar(ctx, seminarID)
		if err != nil {
			return nil, apperr.Internal("list sessions", err)
		}
		in.Sequence = 1
		for _, e := range existing {
			if e.Sequence >= in.Sequence {
				in.Sequence = e.Sequence + 1
			}
		}
	}
	sess := &models.Session{
		SeminarID:       seminarID,
		Sequence:        in.Sequence,
		ScheduledAt:     in.ScheduledAt,
		DurationMinutes: in.DurationMinutes,
		Location:        in.Location,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, storeErr("create session", err)
	}
	s.logger.Info("session created", zap.String("session_id", sess.ID.String()), zap.String("seminar_id", seminarID.String()))
	if err := s.aggregator.Recompute(ctx, seminarID); err != nil {
		return sess, err
	}
	return sess, nil
}

// Get returns a session.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load session", err)
	}
	if sess == nil {
		return nil, apperr.NotFound("session not found")
	}
	return sess, nil
}

// List returns a seminar's sessions ordered by sequence.
func (s *Service) List(ctx context.Context, seminarID uuid.UUID) ([]models.Session, error) {
	list, err := s.store.ListBySeminar(ctx, seminarID)
	if err != nil {
		return nil, apperr.Internal("list sessions", err)
	}
	if list == nil {
		list = []models.Session{}
	}
	return list, nil
}

// Update changes a session's schedule. The seminar span is recomputed when the date moves.
func (s *Service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, p Patch) (*models.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.checker.RequireManager(ctx, actor, sess.SeminarID); err != nil {
		return nil, err
	}
	moved := false
	if p.Sequence != nil {
		sess.Sequence = *p.Sequence
	}
	if p.ScheduledAt != nil {
		moved = !p.ScheduledAt.Equal(sess.ScheduledAt)
		sess.ScheduledAt = *p.ScheduledAt
	}
	if p.DurationMinutes != nil {
		sess.DurationMinutes = *p.DurationMinutes
	}
	if p.Location != nil {
		sess.Location = *p.Location
	}
	if err := validate(Input{Sequence: sess.Sequence, ScheduledAt: sess.ScheduledAt, DurationMinutes: sess.DurationMinutes}); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, sess); err != nil {
		return nil, storeErr("update session", err)
	}
	if moved {
		if err := s.aggregator.Recompute(ctx, sess.SeminarID); err != nil {
			return sess, err
		}
	}
	return sess, nil
}

// Delete removes a session, its credential and its attendance, then recomputes the seminar span.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.checker.RequireManager(ctx, actor, sess.SeminarID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return apperr.Internal("delete session", err)
	}
	s.logger.Info("session deleted", zap.String("session_id", id.String()), zap.String("seminar_id", sess.SeminarID.String()))
	return s.aggregator.Recompute(ctx, sess.SeminarID)
}
