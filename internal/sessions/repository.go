package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-seminar/backend/internal/models"
)

// Repository handles sessions persistence, including the inline credential slot.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, seminar_id, sequence, scheduled_at, duration_minutes, COALESCE(location, ''), credential, reminded_at, created_at, updated_at`

func scanSession(row pgx.Row, s *models.Session) error {
	var cred []byte
	if err := row.Scan(&s.ID, &s.SeminarID, &s.Sequence, &s.ScheduledAt, &s.DurationMinutes, &s.Location, &cred, &s.RemindedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}
	s.Credential = nil
	if len(cred) == 0 {
		return nil
	}
	var c models.Credential
	if err := json.Unmarshal(cred, &c); err != nil {
		return fmt.Errorf("decode credential of session %s: %w", s.ID, err)
	}
	s.Credential = &c
	return nil
}

func collectSessions(rows pgx.Rows) ([]models.Session, error) {
	defer rows.Close()
	var list []models.Session
	for rows.Next() {
		var s models.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Create inserts a session. ID and timestamps are set on s.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO sessions (id, seminar_id, sequence, scheduled_at, duration_minutes, location)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, s.SeminarID, s.Sequence, s.ScheduledAt, s.DurationMinutes, s.Location).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapUnique(err)
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSequence
	}
	return err
}

// GetByID returns a session or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	var s models.Session
	if err := scanSession(r.pool.QueryRow(ctx, q, id), &s); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListBySeminar returns a seminar's sessions ordered by sequence.
func (r *Repository) ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE seminar_id = $1 ORDER BY sequence`
	rows, err := r.pool.Query(ctx, q, seminarID)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// Update writes the schedule fields of a session. The credential slot is untouched.
func (r *Repository) Update(ctx context.Context, s *models.Session) error {
	const q = `UPDATE sessions SET sequence = $2, scheduled_at = $3, duration_minutes = $4, location = NULLIF($5, ''), updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	return mapUnique(r.pool.QueryRow(ctx, q, s.ID, s.Sequence, s.ScheduledAt, s.DurationMinutes, s.Location).Scan(&s.UpdatedAt))
}

// Delete removes a session together with its credential and attendance rows.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// ScheduledDates returns the scheduled time of every session in a seminar.
func (r *Repository) ScheduledDates(ctx context.Context, seminarID uuid.UUID) ([]time.Time, error) {
	const q = `SELECT scheduled_at FROM sessions WHERE seminar_id = $1`
	rows, err := r.pool.Query(ctx, q, seminarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dates []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		dates = append(dates, t)
	}
	return dates, rows.Err()
}

// ReplaceCredential overwrites the session's credential slot in one statement.
// It reports false when the session no longer exists.
func (r *Repository) ReplaceCredential(ctx context.Context, sessionID uuid.UUID, cred *models.Credential) (bool, error) {
	raw, err := json.Marshal(cred)
	if err != nil {
		return false, err
	}
	const q = `UPDATE sessions SET credential = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, sessionID, raw)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListCredentialed returns the seminar's sessions that currently hold a credential.
func (r *Repository) ListCredentialed(ctx context.Context, seminarID uuid.UUID) ([]models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE seminar_id = $1 AND credential IS NOT NULL ORDER BY sequence`
	rows, err := r.pool.Query(ctx, q, seminarID)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// ListDueForReminder returns unreminded sessions scheduled in (from, to].
func (r *Repository) ListDueForReminder(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE reminded_at IS NULL AND scheduled_at > $1 AND scheduled_at <= $2 ORDER BY scheduled_at`
	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// MarkReminded records that reminders for a session have been sent.
func (r *Repository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE sessions SET reminded_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, at)
	return err
}
