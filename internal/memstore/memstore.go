// Package memstore provides in-memory stores with the same contracts as the Postgres
// repositories: lookups return (nil, nil) when a row is missing, and unique keys are enforced.
// It backs service and handler tests.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-seminar/backend/internal/models"
)

// Store bundles one in-memory table per entity.
type Store struct {
	Users         *Users
	Seminars      *Seminars
	Sessions      *Sessions
	Enrollments   *Enrollments
	Attendances   *Attendances
	Notifications *Notifications
}

// New creates an empty Store.
func New() *Store {
	sessions := &Sessions{rows: make(map[uuid.UUID]*models.Session)}
	return &Store{
		Users:         &Users{rows: make(map[uuid.UUID]*models.User)},
		Seminars:      &Seminars{rows: make(map[uuid.UUID]*models.Seminar)},
		Sessions:      sessions,
		Enrollments:   &Enrollments{rows: make(map[uuid.UUID]*models.Enrollment)},
		Attendances:   &Attendances{rows: make(map[attendanceKey]*models.Attendance), sessions: sessions},
		Notifications: &Notifications{},
	}
}

var (
	// ErrInjected is returned by stores whose Fail field is set.
	ErrInjected = errors.New("memstore: injected failure")
	// ErrDuplicate is returned when an insert would break a unique key.
	ErrDuplicate = errors.New("memstore: duplicate key")
)

// ── Users ──

// Users is an in-memory users table.
type Users struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.User
}

// Add stores u and returns it with an ID assigned.
func (s *Users) Add(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.rows[u.ID] = &u
	cp := u
	return &cp
}

func (s *Users) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Users) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error) {
	if u, _ := s.GetByEmail(ctx, email); u != nil {
		return nil, ErrDuplicate
	}
	now := time.Now()
	return s.Add(models.User{Email: email, Password: passwordHash, FullName: fullName, Role: role, CreatedAt: now, UpdatedAt: now}), nil
}

func (s *Users) List(_ context.Context) ([]models.UserPublic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.UserPublic, 0, len(s.rows))
	for _, u := range s.rows {
		list = append(list, u.ToPublic())
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].FullName != list[j].FullName {
			return list[i].FullName < list[j].FullName
		}
		return list[i].Email < list[j].Email
	})
	return list, nil
}

func (s *Users) UpdateRole(_ context.Context, id uuid.UUID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.rows[id]; ok {
		u.Role = role
		u.UpdatedAt = time.Now()
	}
	return nil
}

// ── Seminars ──

// Seminars is an in-memory seminars table.
type Seminars struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Seminar
}

// Add stores a seminar directly, bypassing validation.
func (s *Seminars) Add(sem models.Seminar) *models.Seminar {
	_ = s.Create(context.Background(), &sem)
	return &sem
}

func (s *Seminars) Create(_ context.Context, sem *models.Seminar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sem.ID == uuid.Nil {
		sem.ID = uuid.New()
	}
	now := time.Now()
	sem.CreatedAt, sem.UpdatedAt = now, now
	cp := *sem
	s.rows[sem.ID] = &cp
	return nil
}

func (s *Seminars) GetByID(_ context.Context, id uuid.UUID) (*models.Seminar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *sem
	return &cp, nil
}

func (s *Seminars) List(_ context.Context, ownerID *uuid.UUID) ([]models.Seminar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Seminar
	for _, sem := range s.rows {
		if ownerID != nil && sem.OwnerID != *ownerID {
			continue
		}
		list = append(list, *sem)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *Seminars) Update(_ context.Context, sem *models.Seminar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[sem.ID]
	if !ok {
		return nil
	}
	cur.Title, cur.Description = sem.Title, sem.Description
	cur.Capacity, cur.Status = sem.Capacity, sem.Status
	cur.ApplicationStart, cur.ApplicationEnd = sem.ApplicationStart, sem.ApplicationEnd
	cur.UpdatedAt = time.Now()
	return nil
}

func (s *Seminars) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *Seminars) SetDateRange(_ context.Context, id uuid.UUID, start, end *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sem, ok := s.rows[id]; ok {
		sem.StartDate, sem.EndDate = start, end
	}
	return nil
}

// ── Sessions ──

// Sessions is an in-memory sessions table with the credential slot inline.
type Sessions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Session
}

func copySession(s *models.Session) models.Session {
	cp := *s
	if s.Credential != nil {
		cred := *s.Credential
		cp.Credential = &cred
	}
	return cp
}

// Add stores a session directly.
func (s *Sessions) Add(sess models.Session) *models.Session {
	_ = s.Create(context.Background(), &sess)
	return &sess
}

func (s *Sessions) Create(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	now := time.Now()
	sess.CreatedAt, sess.UpdatedAt = now, now
	cp := copySession(sess)
	s.rows[sess.ID] = &cp
	return nil
}

func (s *Sessions) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := copySession(sess)
	return &cp, nil
}

func (s *Sessions) ListBySeminar(_ context.Context, seminarID uuid.UUID) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Session
	for _, sess := range s.rows {
		if sess.SeminarID == seminarID {
			list = append(list, copySession(sess))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
	return list, nil
}

func (s *Sessions) Update(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[sess.ID]
	if !ok {
		return nil
	}
	cur.Sequence, cur.ScheduledAt = sess.Sequence, sess.ScheduledAt
	cur.DurationMinutes, cur.Location = sess.DurationMinutes, sess.Location
	cur.UpdatedAt = time.Now()
	return nil
}

func (s *Sessions) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *Sessions) ScheduledDates(_ context.Context, seminarID uuid.UUID) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dates []time.Time
	for _, sess := range s.rows {
		if sess.SeminarID == seminarID {
			dates = append(dates, sess.ScheduledAt)
		}
	}
	return dates, nil
}

func (s *Sessions) ReplaceCredential(_ context.Context, sessionID uuid.UUID, cred *models.Credential) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.rows[sessionID]
	if !ok {
		return false, nil
	}
	c := *cred
	sess.Credential = &c
	return true, nil
}

func (s *Sessions) ListCredentialed(ctx context.Context, seminarID uuid.UUID) ([]models.Session, error) {
	all, _ := s.ListBySeminar(ctx, seminarID)
	var list []models.Session
	for _, sess := range all {
		if sess.Credential != nil {
			list = append(list, sess)
		}
	}
	return list, nil
}

func (s *Sessions) ListDueForReminder(_ context.Context, from, to time.Time) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Session
	for _, sess := range s.rows {
		if sess.RemindedAt == nil && sess.ScheduledAt.After(from) && !sess.ScheduledAt.After(to) {
			list = append(list, copySession(sess))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ScheduledAt.Before(list[j].ScheduledAt) })
	return list, nil
}

func (s *Sessions) MarkReminded(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.rows[id]; ok {
		sess.RemindedAt = &at
	}
	return nil
}

// ── Enrollments ──

// Enrollments is an in-memory enrollments table, unique on (user, seminar).
type Enrollments struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Enrollment
}

// Add stores an enrollment directly.
func (s *Enrollments) Add(e models.Enrollment) *models.Enrollment {
	_, _ = s.Create(context.Background(), &e)
	return &e
}

func (s *Enrollments) Create(_ context.Context, e *models.Enrollment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.rows {
		if cur.UserID == e.UserID && cur.SeminarID == e.SeminarID {
			return false, nil
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.AppliedAt.IsZero() {
		e.AppliedAt = time.Now()
	}
	e.UpdatedAt = e.AppliedAt
	cp := *e
	s.rows[e.ID] = &cp
	return true, nil
}

func (s *Enrollments) GetByID(_ context.Context, id uuid.UUID) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *Enrollments) GetByUserAndSeminar(_ context.Context, userID, seminarID uuid.UUID) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rows {
		if e.UserID == userID && e.SeminarID == seminarID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Enrollments) UpdateStatus(_ context.Context, e *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[e.ID]
	if !ok {
		return nil
	}
	cur.Status, cur.ApprovedAt, cur.ApprovedBy = e.Status, e.ApprovedAt, e.ApprovedBy
	cur.UpdatedAt = time.Now()
	return nil
}

func (s *Enrollments) CountByStatus(_ context.Context, seminarID uuid.UUID) (map[models.EnrollmentStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[models.EnrollmentStatus]int)
	for _, e := range s.rows {
		if e.SeminarID == seminarID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

func (s *Enrollments) ListBySeminar(_ context.Context, seminarID uuid.UUID) ([]models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Enrollment
	for _, e := range s.rows {
		if e.SeminarID == seminarID {
			list = append(list, *e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AppliedAt.Before(list[j].AppliedAt) })
	return list, nil
}

func (s *Enrollments) ListApprovedUserIDs(ctx context.Context, seminarID uuid.UUID) ([]uuid.UUID, error) {
	list, _ := s.ListBySeminar(ctx, seminarID)
	var ids []uuid.UUID
	for _, e := range list {
		if e.Status == models.EnrollmentApproved {
			ids = append(ids, e.UserID)
		}
	}
	return ids, nil
}

// Len returns the number of stored enrollments.
func (s *Enrollments) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// ── Attendances ──

type attendanceKey struct{ user, session uuid.UUID }

// Attendances is an in-memory attendances table, unique on (user, session).
type Attendances struct {
	mu       sync.Mutex
	rows     map[attendanceKey]*models.Attendance
	sessions *Sessions
}

func (s *Attendances) Upsert(_ context.Context, a *models.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attendanceKey{a.UserID, a.SessionID}
	if cur, ok := s.rows[key]; ok {
		a.ID = cur.ID
	} else if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.UpdatedAt = time.Now()
	cp := *a
	s.rows[key] = &cp
	return nil
}

func (s *Attendances) GetByUserAndSession(_ context.Context, userID, sessionID uuid.UUID) (*models.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[attendanceKey{userID, sessionID}]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *Attendances) ListBySession(_ context.Context, sessionID uuid.UUID) ([]models.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Attendance
	for _, a := range s.rows {
		if a.SessionID == sessionID {
			list = append(list, *a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CheckedAt.Before(list[j].CheckedAt) })
	return list, nil
}

func (s *Attendances) ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Attendance, error) {
	sessions, _ := s.sessions.ListBySeminar(ctx, seminarID)
	in := make(map[uuid.UUID]bool, len(sessions))
	for _, sess := range sessions {
		in[sess.ID] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Attendance
	for _, a := range s.rows {
		if in[a.SessionID] {
			list = append(list, *a)
		}
	}
	return list, nil
}

// Len returns the number of stored attendance rows.
func (s *Attendances) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// ── Notifications ──

// Notifications is an append-only in-memory inbox. Setting Fail makes inserts error.
type Notifications struct {
	mu   sync.Mutex
	rows []models.Notification
	Fail bool
}

func (s *Notifications) InsertBulk(_ context.Context, list []models.Notification) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return 0, ErrInjected
	}
	for _, n := range list {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt = time.Now()
		s.rows = append(s.rows, n)
	}
	return len(list), nil
}

func (s *Notifications) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Notification
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].UserID == userID {
			list = append(list, s.rows[i])
		}
		if limit > 0 && len(list) == limit {
			break
		}
	}
	return list, nil
}

func (s *Notifications) MarkRead(_ context.Context, id, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id && s.rows[i].UserID == userID {
			now := time.Now()
			s.rows[i].ReadAt = &now
			return true, nil
		}
	}
	return false, nil
}

// All returns a copy of every stored notification.
func (s *Notifications) All() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.rows...)
}
