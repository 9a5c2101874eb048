package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-seminar/backend/internal/models"
)

// insertChunk is the number of rows written per INSERT statement.
const insertChunk = 200

// Repository handles notifications persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertBulk appends rows in chunks, each its own statement. A failing chunk does not undo
// earlier ones; the count of rows written is returned with the first error.
func (r *Repository) InsertBulk(ctx context.Context, list []models.Notification) (int, error) {
	const q = `INSERT INTO notifications (id, user_id, kind, title, body, payload)
		SELECT gen_random_uuid(), t.user_id::uuid, t.kind, t.title, t.body, t.payload::jsonb
		FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[]) AS t(user_id, kind, title, body, payload)`
	inserted := 0
	for start := 0; start < len(list); start += insertChunk {
		end := start + insertChunk
		if end > len(list) {
			end = len(list)
		}
		chunk := list[start:end]
		users := make([]string, len(chunk))
		kinds := make([]string, len(chunk))
		titles := make([]string, len(chunk))
		bodies := make([]string, len(chunk))
		payloads := make([]*string, len(chunk))
		for i, n := range chunk {
			users[i] = n.UserID.String()
			kinds[i] = string(n.Kind)
			titles[i] = n.Title
			bodies[i] = n.Body
			if len(n.Payload) > 0 {
				p := string(n.Payload)
				payloads[i] = &p
			}
		}
		tag, err := r.pool.Exec(ctx, q, users, kinds, titles, bodies, payloads)
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListByUser returns a user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	const q = `SELECT id, user_id, kind, title, body, payload, read_at, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		var payload []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &payload, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Payload = payload
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead sets read_at on a user's notification. It reports false when no such notification exists.
func (r *Repository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	const q = `UPDATE notifications SET read_at = COALESCE(read_at, NOW()) WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
