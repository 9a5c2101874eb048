package enrollments

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-seminar/backend/internal/models"
)

// Repository handles enrollments persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an enrollments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const enrollmentColumns = `id, user_id, seminar_id, status, applied_at, approved_at, approved_by, updated_at`

func scanEnrollment(row pgx.Row, e *models.Enrollment) error {
	return row.Scan(&e.ID, &e.UserID, &e.SeminarID, &e.Status, &e.AppliedAt, &e.ApprovedAt, &e.ApprovedBy, &e.UpdatedAt)
}

// Create inserts a pending enrollment. It reports false, leaving e untouched, when the
// (user, seminar) pair already has a row.
func (r *Repository) Create(ctx context.Context, e *models.Enrollment) (bool, error) {
	const q = `INSERT INTO enrollments (id, user_id, seminar_id, status, applied_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW())
		ON CONFLICT (user_id, seminar_id) DO NOTHING
		RETURNING id, applied_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.UserID, e.SeminarID, e.Status).Scan(&e.ID, &e.AppliedAt, &e.UpdatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByID returns an enrollment or nil.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var e models.Enrollment
	if err := scanEnrollment(r.pool.QueryRow(ctx, q, id), &e); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// GetByUserAndSeminar returns the user's enrollment in a seminar or nil.
func (r *Repository) GetByUserAndSeminar(ctx context.Context, userID, seminarID uuid.UUID) (*models.Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND seminar_id = $2`
	var e models.Enrollment
	if err := scanEnrollment(r.pool.QueryRow(ctx, q, userID, seminarID), &e); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// UpdateStatus writes status and the approval fields.
func (r *Repository) UpdateStatus(ctx context.Context, e *models.Enrollment) error {
	const q = `UPDATE enrollments SET status = $2, approved_at = $3, approved_by = $4, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, e.ID, e.Status, e.ApprovedAt, e.ApprovedBy).Scan(&e.UpdatedAt)
}

// CountByStatus returns the number of enrollments per status for a seminar.
func (r *Repository) CountByStatus(ctx context.Context, seminarID uuid.UUID) (map[models.EnrollmentStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM enrollments WHERE seminar_id = $1 GROUP BY status`
	rows, err := r.pool.Query(ctx, q, seminarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[models.EnrollmentStatus]int)
	for rows.Next() {
		var status models.EnrollmentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ListBySeminar returns a seminar's enrollments in application order.
func (r *Repository) ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE seminar_id = $1 ORDER BY applied_at`
	rows, err := r.pool.Query(ctx, q, seminarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		if err := scanEnrollment(rows, &e); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// ListApprovedUserIDs returns the user ids of a seminar's approved members.
func (r *Repository) ListApprovedUserIDs(ctx context.Context, seminarID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT user_id FROM enrollments WHERE seminar_id = $1 AND status = 'approved' ORDER BY applied_at`
	rows, err := r.pool.Query(ctx, q, seminarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
