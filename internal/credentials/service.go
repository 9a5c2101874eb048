// Package credentials issues the short-lived check-in credential of a session and verifies
// what members submit against it, recording attendance on success.
package credentials

import (
	"context"
	"crypto/subtle"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/models"
)

// DefaultTTL is how long a credential stays valid when no TTL is configured.
const DefaultTTL = 10 * time.Minute

// SessionStore reads sessions and owns their credential slot.
type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ReplaceCredential(ctx context.Context, sessionID uuid.UUID, cred *models.Credential) (bool, error)
	ListCredentialed(ctx context.Context, seminarID uuid.UUID) ([]models.Session, error)
}

// EnrollmentLookup finds a user's enrollment in a seminar; nil when there is none.
type EnrollmentLookup interface {
	GetByUserAndSeminar(ctx context.Context, userID, seminarID uuid.UUID) (*models.Enrollment, error)
}

// AttendanceWriter upserts attendance keyed on (user, session).
type AttendanceWriter interface {
	Upsert(ctx context.Context, a *models.Attendance) error
}

// CheckInPublisher announces a successful check-in to live viewers of the session.
type CheckInPublisher interface {
	PublishCheckIn(ctx context.Context, a models.Attendance)
}

// Options configures a Service.
type Options struct {
	TTL           time.Duration
	PublicBaseURL string
	Publisher     CheckInPublisher
	Logger        *zap.Logger
}

// Service issues and verifies session credentials.
type Service struct {
	sessions    SessionStore
	seminars    access.SeminarLookup
	enrollments EnrollmentLookup
	attendance  AttendanceWriter
	checker     *access.Checker
	publisher   CheckInPublisher
	ttl         time.Duration
	baseURL     string
	logger      *zap.Logger

	now      func() time.Time
	genToken func() (string, error)
	genCode  func() (string, error)
}

// NewService creates a credential service.
func NewService(sessions SessionStore, seminars access.SeminarLookup, enrollments EnrollmentLookup, attendance AttendanceWriter, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Service{
		sessions:    sessions,
		seminars:    seminars,
		enrollments: enrollments,
		attendance:  attendance,
		checker:     access.NewChecker(seminars),
		publisher:   opts.Publisher,
		ttl:         opts.TTL,
		baseURL:     opts.PublicBaseURL,
		logger:      opts.Logger,
		now:         time.Now,
		genToken:    newToken,
		genCode:     newNumericCode,
	}
}

// IssueResult is what a manager displays to members: a scannable link and the numeric fallback.
type IssueResult struct {
	ScanURL     string    `json:"scanUrl"`
	NumericCode string    `json:"numericCode"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Token       string    `json:"token"`
	SessionID   uuid.UUID `json:"sessionId"`
	SeminarID   uuid.UUID `json:"seminarId"`
}

// Issue mints a new credential for a session, replacing whatever the slot held.
func (s *Service) Issue(ctx context.Context, actor access.Actor, sessionID uuid.UUID) (*IssueResult, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.checker.RequireManager(ctx, actor, sess.SeminarID); err != nil {
		return nil, err
	}

	token, err := s.genToken()
	if err != nil {
		return nil, apperr.Internal("generate token", err)
	}
	code, err := s.genCode()
	if err != nil {
		return nil, apperr.Internal("generate numeric code", err)
	}
	now := s.now()
	cred := &models.Credential{
		Token:       token,
		NumericCode: code,
		// Whole seconds, the same instant the scan link's expires_at hint carries.
		ExpiresAt:   now.Add(s.ttl).Truncate(time.Second),
		IssuedBy:    actor.UserID,
		IssuedAt:    now,
	}
	stored, err := s.sessions.ReplaceCredential(ctx, sess.ID, cred)
	if err != nil {
		return nil, apperr.Internal("store credential", err)
	}
	if !stored {
		return nil, apperr.NotFound("session not found")
	}
	s.logger.Info("credential issued",
		zap.String("session_id", sess.ID.String()),
		zap.String("issued_by", actor.UserID.String()),
		zap.Time("expires_at", cred.ExpiresAt),
	)
	return &IssueResult{
		ScanURL:     s.scanURL(sess, cred),
		NumericCode: cred.NumericCode,
		ExpiresAt:   cred.ExpiresAt,
		Token:       cred.Token,
		SessionID:   sess.ID,
		SeminarID:   sess.SeminarID,
	}, nil
}

func (s *Service) scanURL(sess *models.Session, cred *models.Credential) string {
	q := url.Values{}
	q.Set("seminar_id", sess.SeminarID.String())
	q.Set("session_id", sess.ID.String())
	q.Set("token", cred.Token)
	q.Set("expires_at", strconv.FormatInt(cred.ExpiresAt.Unix(), 10))
	return s.baseURL + "/attend?" + q.Encode()
}

// VerifyRequest is a member's check-in attempt. Exactly one of Token and NumericCode is set.
// SessionID is required for the token path; SeminarID may be left empty when SessionID is set.
type VerifyRequest struct {
	SeminarID   uuid.UUID
	SessionID   uuid.UUID
	Token       string
	NumericCode string
	ExpiresHint *time.Time
	Requester   uuid.UUID
}

// VerifyResult is returned on a successful check-in.
type VerifyResult struct {
	Attendance   models.Attendance `json:"attendance"`
	SeminarTitle string            `json:"seminarTitle"`
	SessionID    uuid.UUID         `json:"sessionId"`
}

// Verify checks a submitted credential and records the requester as present. Checks run in a
// fixed order and stop at the first failure: input shape, seminar, credential match, expiry
// (client hint, then stored expiry), enrollment. Repeating a successful check-in succeeds again.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	hasToken, hasCode := req.Token != "", req.NumericCode != ""
	switch {
	case hasToken == hasCode:
		return nil, apperr.BadRequest("provide exactly one of token or numeric code")
	case hasCode && !validNumericCode(req.NumericCode):
		return nil, apperr.BadRequest("numeric code must be 6 digits")
	case hasToken && req.SessionID == uuid.Nil:
		return nil, apperr.BadRequest("token check-in requires a session")
	}

	var pathSession *models.Session
	seminarID := req.SeminarID
	if seminarID == uuid.Nil {
		if req.SessionID == uuid.Nil {
			return nil, apperr.BadRequest("seminar or session is required")
		}
		sess, err := s.loadSession(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		pathSession, seminarID = sess, sess.SeminarID
	}
	sem, err := s.seminars.GetByID(ctx, seminarID)
	if err != nil {
		return nil, apperr.Internal("load seminar", err)
	}
	if sem == nil {
		return nil, apperr.NotFound("seminar not found")
	}

	var sess *models.Session
	if hasCode {
		sess, err = s.matchNumericCode(ctx, seminarID, req.NumericCode)
	} else {
		sess, err = s.matchToken(ctx, pathSession, req.SessionID, seminarID, req.Token)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if req.ExpiresHint != nil && now.After(*req.ExpiresHint) {
		return nil, apperr.Expired("check-in code has expired")
	}
	if sess.Credential.ExpiredAt(now) {
		return nil, apperr.Expired("check-in code has expired")
	}

	enrollment, err := s.enrollments.GetByUserAndSeminar(ctx, req.Requester, seminarID)
	if err != nil {
		return nil, apperr.Internal("load enrollment", err)
	}
	if enrollment == nil || enrollment.Status != models.EnrollmentApproved {
		return nil, apperr.NotEnrolled("you are not an approved member of this seminar")
	}

	a := &models.Attendance{
		UserID:    req.Requester,
		SessionID: sess.ID,
		Status:    models.AttendancePresent,
		CheckedAt: now,
		CheckedBy: req.Requester,
	}
	if err := s.attendance.Upsert(ctx, a); err != nil {
		return nil, apperr.Internal("record attendance", err)
	}
	s.logger.Info("attendance checked in",
		zap.String("session_id", sess.ID.String()),
		zap.String("user_id", req.Requester.String()),
		zap.Bool("numeric", hasCode),
	)
	if s.publisher != nil {
		s.publisher.PublishCheckIn(ctx, *a)
	}
	return &VerifyResult{Attendance: *a, SeminarTitle: sem.Title, SessionID: sess.ID}, nil
}

// matchNumericCode scans the seminar's credentialed sessions; the first matching code wins.
func (s *Service) matchNumericCode(ctx context.Context, seminarID uuid.UUID, code string) (*models.Session, error) {
	list, err := s.sessions.ListCredentialed(ctx, seminarID)
	if err != nil {
		return nil, apperr.Internal("list credentialed sessions", err)
	}
	for i := range list {
		if list[i].Credential != nil && equal(list[i].Credential.NumericCode, code) {
			return &list[i], nil
		}
	}
	return nil, apperr.InvalidCode("check-in code is not valid")
}

func (s *Service) matchToken(ctx context.Context, loaded *models.Session, sessionID, seminarID uuid.UUID, token string) (*models.Session, error) {
	sess := loaded
	if sess == nil {
		var err error
		if sess, err = s.loadSession(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	if sess.SeminarID != seminarID {
		return nil, apperr.NotFound("session not found")
	}
	if sess.Credential == nil || !equal(sess.Credential.Token, token) {
		return nil, apperr.InvalidCode("check-in code is not valid")
	}
	return sess, nil
}

func (s *Service) loadSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load session", err)
	}
	if sess == nil {
		return nil, apperr.NotFound("session not found")
	}
	return sess, nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
