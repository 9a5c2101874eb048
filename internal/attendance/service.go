// Package attendance lets seminar managers mark, list and export session attendance.
package attendance

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/storage"
)

// Store is the attendance persistence used by Service.
type Store interface {
	Upsert(ctx context.Context, a *models.Attendance) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Attendance, error)
	ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Attendance, error)
}

// SessionLookup reads sessions.
type SessionLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Session, error)
}

// Members lists a seminar's approved members.
type Members interface {
	ListApprovedUserIDs(ctx context.Context, seminarID uuid.UUID) ([]uuid.UUID, error)
}

// UserLookup resolves user ids for marking and for the export sheet.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ExportUploader stores an export file and returns a download URL.
type ExportUploader interface {
	PutExport(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Service implements manager attendance operations.
type Service struct {
	store    Store
	sessions SessionLookup
	members  Members
	users    UserLookup
	uploader ExportUploader
	checker  *access.Checker
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an attendance service. uploader may be nil, in which case Export is unavailable.
func NewService(store Store, sessions SessionLookup, seminars access.SeminarLookup, members Members, users UserLookup, uploader ExportUploader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		sessions: sessions,
		members:  members,
		users:    users,
		uploader: uploader,
		checker:  access.NewChecker(seminars),
		logger:   logger,
		now:      time.Now,
	}
}

// SetInput is a manager's mark for one member at one session.
type SetInput struct {
	UserID uuid.UUID
	Status models.AttendanceStatus
	Notes  string
}

func (s *Service) managedSession(ctx context.Context, actor access.Actor, sessionID uuid.UUID) (*models.Session, *models.Seminar, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, apperr.Internal("load session", err)
	}
	if sess == nil {
		return nil, nil, apperr.NotFound("session not found")
	}
	sem, err := s.checker.RequireManager(ctx, actor, sess.SeminarID)
	if err != nil {
		return nil, nil, err
	}
	return sess, sem, nil
}

// Set records any status for a member at a session, overwriting an earlier record.
func (s *Service) Set(ctx context.Context, actor access.Actor, sessionID uuid.UUID, in SetInput) (*models.Attendance, error) {
	if !in.Status.Valid() {
		return nil, apperr.BadRequest("status must be one of present, absent, late, excused")
	}
	if in.UserID == uuid.Nil {
		return nil, apperr.BadRequest("userId is required")
	}
	if _, _, err := s.managedSession(ctx, actor, sessionID); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	a := &models.Attendance{
		UserID:    in.UserID,
		SessionID: sessionID,
		Status:    in.Status,
		CheckedAt: s.now(),
		CheckedBy: actor.UserID,
		Notes:     in.Notes,
	}
	if err := s.store.Upsert(ctx, a); err != nil {
		return nil, apperr.Internal("record attendance", err)
	}
	s.logger.Info("attendance set",
		zap.String("session_id", sessionID.String()),
		zap.String("user_id", in.UserID.String()),
		zap.String("status", string(in.Status)),
		zap.String("checked_by", actor.UserID.String()),
	)
	return a, nil
}

// ListBySession returns the recorded rows of a session to its manager.
func (s *Service) ListBySession(ctx context.Context, actor access.Actor, sessionID uuid.UUID) ([]models.Attendance, error) {
	if _, _, err := s.managedSession(ctx, actor, sessionID); err != nil {
		return nil, err
	}
	list, err := s.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal("list attendance", err)
	}
	if list == nil {
		list = []models.Attendance{}
	}
	return list, nil
}

// ExportResult points at an uploaded attendance workbook.
type ExportResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Members  int    `json:"members"`
	Sessions int    `json:"sessions"`
}

// Export builds the seminar's member × session workbook, uploads it and returns a download link.
func (s *Service) Export(ctx context.Context, actor access.Actor, seminarID uuid.UUID) (*ExportResult, error) {
	sem, err := s.checker.RequireManager(ctx, actor, seminarID)
	if err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, apperr.Internal("export storage not configured", nil)
	}
	sessions, err := s.sessions.ListBySeminar(ctx, seminarID)
	if err != nil {
		return nil, apperr.Internal("list sessions", err)
	}
	ids, err := s.members.ListApprovedUserIDs(ctx, seminarID)
	if err != nil {
		return nil, apperr.Internal("list members", err)
	}
	members := make([]models.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, apperr.Internal("load member", err)
		}
		if u == nil {
			u = &models.User{ID: id}
		}
		members = append(members, *u)
	}
	rows, err := s.store.ListBySeminar(ctx, seminarID)
	if err != nil {
		return nil, apperr.Internal("list attendance", err)
	}

	buf, err := BuildWorkbook(sem, sessions, members, rows)
	if err != nil {
		return nil, apperr.Internal("build workbook", err)
	}
	key := storage.AttendanceExportKey(seminarID.String(), s.now())
	url, err := s.uploader.PutExport(ctx, key, storage.ContentTypeXLSX, buf)
	if err != nil {
		return nil, apperr.Internal("upload export", err)
	}
	s.logger.Info("attendance exported",
		zap.String("seminar_id", seminarID.String()),
		zap.Int("members", len(members)),
		zap.Int("sessions", len(sessions)),
	)
	return &ExportResult{URL: url, Key: key, Members: len(members), Sessions: len(sessions)}, nil
}
