package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageEvent is one persisted event from the usage stream.
type UsageEvent struct {
	ID         uuid.UUID `json:"id"`
	Subject    string    `json:"subject"`
	SubjectKey string    `json:"subject_key"`
	Payload    []byte    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository persists usage events to the database.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, event *UsageEvent) error {
	query := `
		INSERT INTO usage_events (id, subject, subject_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID, event.Subject, event.SubjectKey, event.Payload, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting usage event: %w", err)
	}
	return nil
}

// ListBySubjectKey returns the most recent events for one identity.
func (r *Repository) ListBySubjectKey(ctx context.Context, subjectKey string, limit int) ([]UsageEvent, error) {
	query := `
		SELECT id, subject, subject_key, payload, created_at
		FROM usage_events
		WHERE subject_key = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, subjectKey, limit)
	if err != nil {
		return nil, fmt.Errorf("listing usage events: %w", err)
	}
	defer rows.Close()

	var out []UsageEvent
	for rows.Next() {
		var e UsageEvent
		if err := rows.Scan(&e.ID, &e.Subject, &e.SubjectKey, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning usage event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
