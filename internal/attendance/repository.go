package attendance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-seminar/backend/internal/models"
)

// Repository handles attendances persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendances repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const attendanceColumns = `id, user_id, session_id, status, checked_at, checked_by, COALESCE(notes, ''), updated_at`

func scanAttendance(row pgx.Row, a *models.Attendance) error {
	return row.Scan(&a.ID, &a.UserID, &a.SessionID, &a.Status, &a.CheckedAt, &a.CheckedBy, &a.Notes, &a.UpdatedAt)
}

// Upsert writes the row for (user, session); a second write replaces the first.
func (r *Repository) Upsert(ctx context.Context, a *models.Attendance) error {
	const q = `INSERT INTO attendances (id, user_id, session_id, status, checked_at, checked_by, notes)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, NULLIF($6, ''))
		ON CONFLICT (user_id, session_id) DO UPDATE SET
			status = EXCLUDED.status, checked_at = EXCLUDED.checked_at,
			checked_by = EXCLUDED.checked_by, notes = EXCLUDED.notes, updated_at = NOW()
		RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, q, a.UserID, a.SessionID, a.Status, a.CheckedAt, a.CheckedBy, a.Notes).Scan(&a.ID, &a.UpdatedAt)
}

// ListBySession returns a session's rows in check-in order.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Attendance, error) {
	q := `SELECT ` + attendanceColumns + ` FROM attendances WHERE session_id = $1 ORDER BY checked_at`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListBySeminar returns every row for every session of a seminar.
func (r *Repository) ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Attendance, error) {
	const q = `SELECT a.id, a.user_id, a.session_id, a.status, a.checked_at, a.checked_by, COALESCE(a.notes, ''), a.updated_at
		FROM attendances a JOIN sessions s ON s.id = a.session_id
		WHERE s.seminar_id = $1`
	rows, err := r.pool.Query(ctx, q, seminarID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]models.Attendance, error) {
	defer rows.Close()
	var list []models.Attendance
	for rows.Next() {
		var a models.Attendance
		if err := scanAttendance(rows, &a); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
