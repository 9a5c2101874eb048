// Package enrollments owns the pending → approved / rejected / cancelled lifecycle of a
// user's membership in a seminar and the capacity summary derived from it.
package enrollments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/internal/notifications"
)

// Store is the enrollment persistence used by Service.
type Store interface {
	Create(ctx context.Context, e *models.Enrollment) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, e *models.Enrollment) error
	CountByStatus(ctx context.Context, seminarID uuid.UUID) (map[models.EnrollmentStatus]int, error)
	ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Enrollment, error)
}

// Notifier queues a notification without waiting for delivery.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, msg notifications.Message)
}

// Service implements the enrollment workflow.
type Service struct {
	store    Store
	seminars access.SeminarLookup
	checker  *access.Checker
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an enrollment service.
func NewService(store Store, seminars access.SeminarLookup, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		seminars: seminars,
		checker:  access.NewChecker(seminars),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) loadSeminar(ctx context.Context, id uuid.UUID) (*models.Seminar, error) {
	sem, err := s.seminars.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load seminar", err)
	}
	if sem == nil {
		return nil, apperr.NotFound("seminar not found")
	}
	return sem, nil
}

func (s *Service) loadEnrollment(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load enrollment", err)
	}
	if e == nil {
		return nil, apperr.NotFound("enrollment not found")
	}
	return e, nil
}

// Request applies userID to a seminar as pending. A second request for the same pair is a Conflict,
// whatever the status of the existing row.
func (s *Service) Request(ctx context.Context, userID, seminarID uuid.UUID) (*models.Enrollment, error) {
	if _, err := s.loadSeminar(ctx, seminarID); err != nil {
		return nil, err
	}
	e := &models.Enrollment{UserID: userID, SeminarID: seminarID, Status: models.EnrollmentPending}
	created, err := s.store.Create(ctx, e)
	if err != nil {
		return nil, apperr.Internal("create enrollment", err)
	}
	if !created {
		return nil, apperr.Conflict("already applied to this seminar")
	}
	s.logger.Info("enrollment requested",
		zap.String("enrollment_id", e.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("seminar_id", seminarID.String()),
	)
	return e, nil
}

// Decide approves or rejects an enrollment on behalf of the seminar's owner or an admin.
// The enrollee is notified on every transition; a decision that does not change the
// status is returned as-is without a notification.
func (s *Service) Decide(ctx context.Context, actor access.Actor, enrollmentID uuid.UUID, status models.EnrollmentStatus) (*models.Enrollment, error) {
	if status != models.EnrollmentApproved && status != models.EnrollmentRejected {
		return nil, apperr.BadRequest("status must be approved or rejected")
	}
	e, err := s.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	sem, err := s.checker.RequireManager(ctx, actor, e.SeminarID)
	if err != nil {
		return nil, err
	}
	if e.Status == models.EnrollmentCancelled {
		return nil, apperr.Conflict("enrollment was cancelled by the applicant")
	}
	if e.Status == status {
		return e, nil
	}

	e.Status = status
	if status == models.EnrollmentApproved {
		now := s.now()
		by := actor.UserID
		e.ApprovedAt, e.ApprovedBy = &now, &by
	} else {
		e.ApprovedAt, e.ApprovedBy = nil, nil
	}
	if err := s.store.UpdateStatus(ctx, e); err != nil {
		return nil, apperr.Internal("update enrollment", err)
	}
	s.logger.Info("enrollment decided",
		zap.String("enrollment_id", e.ID.String()),
		zap.String("status", string(status)),
		zap.String("decided_by", actor.UserID.String()),
	)

	s.notifier.Notify(ctx, e.UserID, notifications.Message{
		Kind:  models.NotificationEnrollmentDecided,
		Title: decisionTitle(status, sem.Title),
		Data: map[string]string{
			"enrollment_id": e.ID.String(),
			"seminar_id":    sem.ID.String(),
			"status":        string(status),
		},
	})
	return e, nil
}

func decisionTitle(status models.EnrollmentStatus, seminar string) string {
	if status == models.EnrollmentApproved {
		return "Your enrollment in " + seminar + " was approved"
	}
	return "Your enrollment in " + seminar + " was not approved"
}

// Cancel withdraws the caller's own enrollment.
func (s *Service) Cancel(ctx context.Context, actor access.Actor, enrollmentID uuid.UUID) (*models.Enrollment, error) {
	e, err := s.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if e.UserID != actor.UserID {
		return nil, apperr.PermissionDenied("only the applicant can cancel an enrollment")
	}
	if e.Status == models.EnrollmentCancelled {
		return e, nil
	}
	e.Status = models.EnrollmentCancelled
	e.ApprovedAt, e.ApprovedBy = nil, nil
	if err := s.store.UpdateStatus(ctx, e); err != nil {
		return nil, apperr.Internal("cancel enrollment", err)
	}
	s.logger.Info("enrollment cancelled", zap.String("enrollment_id", e.ID.String()))
	return e, nil
}

// Stats folds the seminar's enrollments into counts and remaining seats.
func (s *Service) Stats(ctx context.Context, seminarID uuid.UUID) (*models.EnrollmentStats, error) {
	sem, err := s.loadSeminar(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountByStatus(ctx, seminarID)
	if err != nil {
		return nil, apperr.Internal("count enrollments", err)
	}
	return BuildStats(sem, counts), nil
}

// BuildStats computes the capacity summary from per-status counts.
func BuildStats(sem *models.Seminar, counts map[models.EnrollmentStatus]int) *models.EnrollmentStats {
	st := &models.EnrollmentStats{
		SeminarID: sem.ID,
		Capacity:  sem.Capacity,
		Pending:   counts[models.EnrollmentPending],
		Approved:  counts[models.EnrollmentApproved],
		Rejected:  counts[models.EnrollmentRejected],
		Cancelled: counts[models.EnrollmentCancelled],
	}
	if rem := sem.Capacity - st.Approved; rem > 0 {
		st.Remaining = rem
	}
	return st
}

// List returns a seminar's enrollments to its manager.
func (s *Service) List(ctx context.Context, actor access.Actor, seminarID uuid.UUID) ([]models.Enrollment, error) {
	if _, err := s.checker.RequireManager(ctx, actor, seminarID); err != nil {
		return nil, err
	}
	list, err := s.store.ListBySeminar(ctx, seminarID)
	if err != nil {
		return nil, apperr.Internal("list enrollments", err)
	}
	if list == nil {
		list = []models.Enrollment{}
	}
	return list, nil
}
