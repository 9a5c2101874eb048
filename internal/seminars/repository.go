package seminars

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-seminar/backend/internal/models"
)

const seminarColumns = `id, title, description, owner_id, capacity, status, start_date, end_date,
	application_start, application_end, created_at, updated_at`

// Repository handles seminar persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a seminar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSeminar(row pgx.Row, s *models.Seminar) error {
	return row.Scan(&s.ID, &s.Title, &s.Description, &s.OwnerID, &s.Capacity, &s.Status, &s.StartDate, &s.EndDate,
		&s.ApplicationStart, &s.ApplicationEnd, &s.CreatedAt, &s.UpdatedAt)
}

// Create inserts a new seminar. start_date/end_date start out null.
func (r *Repository) Create(ctx context.Context, s *models.Seminar) error {
	const q = `INSERT INTO seminars (id, title, description, owner_id, capacity, status, application_start, application_end)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.Title, s.Description, s.OwnerID, s.Capacity, s.Status, s.ApplicationStart, s.ApplicationEnd).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID returns a seminar by ID, or nil if it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error) {
	var s models.Seminar
	err := scanSeminar(r.pool.QueryRow(ctx, `SELECT `+seminarColumns+` FROM seminars WHERE id = $1`, id), &s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// List returns seminars, optionally only those owned by ownerID.
func (r *Repository) List(ctx context.Context, ownerID *uuid.UUID) ([]models.Seminar, error) {
	q := `SELECT ` + seminarColumns + ` FROM seminars`
	var args []interface{}
	if ownerID != nil {
		q += ` WHERE owner_id = $1`
		args = append(args, *ownerID)
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Seminar
	for rows.Next() {
		var s models.Seminar
		if err := scanSeminar(rows, &s); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Update writes the user-editable fields. The derived date span is never touched here.
func (r *Repository) Update(ctx context.Context, s *models.Seminar) error {
	const q = `UPDATE seminars SET title = $1, description = $2, capacity = $3, status = $4,
		application_start = $5, application_end = $6, updated_at = NOW() WHERE id = $7
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, s.Title, s.Description, s.Capacity, s.Status, s.ApplicationStart, s.ApplicationEnd, s.ID).
		Scan(&s.UpdatedAt)
}

// Delete removes a seminar; sessions, enrollments and attendance cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM seminars WHERE id = $1`, id)
	return err
}

// SetDateRange stores the span computed by the Aggregator. Nil clears the column.
func (r *Repository) SetDateRange(ctx context.Context, id uuid.UUID, start, end *time.Time) error {
	const q = `UPDATE seminars SET start_date = $1::date, end_date = $2::date, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, start, end, id)
	return err
}
