// Package reminders notifies approved members shortly before their sessions start.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/internal/notifications"
)

// DefaultLead is how far ahead of a session reminders go out.
const DefaultLead = time.Hour

// SessionSource finds sessions that still need a reminder and records when one was sent.
type SessionSource interface {
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]models.Session, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}

// SeminarLookup loads a seminar; (nil, nil) when missing.
type SeminarLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
}

// Members lists a seminar's approved members.
type Members interface {
	ListApprovedUserIDs(ctx context.Context, seminarID uuid.UUID) ([]uuid.UUID, error)
}

// BulkNotifier queues one message for many users.
type BulkNotifier interface {
	NotifyBulk(ctx context.Context, userIDs []uuid.UUID, msg notifications.Message)
}

// Sweeper sends one reminder per session whose start falls inside the lead window.
type Sweeper struct {
	sessions SessionSource
	seminars SeminarLookup
	members  Members
	notifier BulkNotifier
	lead     time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(sessions SessionSource, seminars SeminarLookup, members Members, notifier BulkNotifier, lead time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lead <= 0 {
		lead = DefaultLead
	}
	return &Sweeper{sessions: sessions, seminars: seminars, members: members, notifier: notifier, lead: lead, logger: logger}
}

// Run reminds members of every unreminded session scheduled in (now, now+lead] and returns
// how many sessions were handled. A session is marked once its reminder is queued, so a
// later sweep skips it.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (int, error) {
	due, err := s.sessions.ListDueForReminder(ctx, now, now.Add(s.lead))
	if err != nil {
		return 0, fmt.Errorf("list due sessions: %w", err)
	}
	handled := 0
	for _, sess := range due {
		if err := s.remind(ctx, sess, now); err != nil {
			s.logger.Error("session reminder failed", zap.String("session_id", sess.ID.String()), zap.Error(err))
			continue
		}
		handled++
	}
	if handled > 0 {
		s.logger.Info("session reminders sent", zap.Int("sessions", handled))
	}
	return handled, nil
}

func (s *Sweeper) remind(ctx context.Context, sess models.Session, now time.Time) error {
	sem, err := s.seminars.GetByID(ctx, sess.SeminarID)
	if err != nil {
		return fmt.Errorf("load seminar: %w", err)
	}
	if sem == nil || sem.Status == models.SeminarCancelled {
		return s.sessions.MarkReminded(ctx, sess.ID, now)
	}
	ids, err := s.members.ListApprovedUserIDs(ctx, sess.SeminarID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	s.notifier.NotifyBulk(ctx, ids, notifications.Message{
		Kind:  models.NotificationSessionReminder,
		Title: fmt.Sprintf("%s session %d starts at %s", sem.Title, sess.Sequence, sess.ScheduledAt.UTC().Format("15:04 MST")),
		Body:  sess.Location,
		Data: map[string]interface{}{
			"seminar_id":   sem.ID.String(),
			"session_id":   sess.ID.String(),
			"scheduled_at": sess.ScheduledAt,
		},
	})
	return s.sessions.MarkReminded(ctx, sess.ID, now)
}

// Schedule registers the sweep on c using a cron spec such as "@every 5m". Overlapping runs are skipped.
func (s *Sweeper) Schedule(c *cron.Cron, spec string, timeout time.Duration) (cron.EntryID, error) {
	job := cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := s.Run(ctx, time.Now()); err != nil {
			s.logger.Error("reminder sweep failed", zap.Error(err))
		}
	})
	return c.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(job))
}
