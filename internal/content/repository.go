package content

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists generation records.
type Repository interface {
	Create(ctx context.Context, g *Generation) error
	ListBySubjectKey(ctx context.Context, subjectKey string, page, pageSize int) ([]Generation, int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, g *Generation) error {
	query := `
		INSERT INTO generations (id, user_id, subject_key, product_name, content_type, tone,
			text, model, finish_reason, tokens_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		g.ID, g.UserID, g.SubjectKey, g.ProductName, g.ContentType, g.Tone,
		g.Text, g.Model, g.FinishReason, g.TokensUsed, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting generation: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListBySubjectKey(ctx context.Context, subjectKey string, page, pageSize int) ([]Generation, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM generations WHERE subject_key = $1`
	if err := r.pool.QueryRow(ctx, countQuery, subjectKey).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting generations: %w", err)
	}

	query := `
		SELECT id, user_id, subject_key, product_name, content_type, tone,
			text, model, finish_reason, tokens_used, created_at
		FROM generations
		WHERE subject_key = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, subjectKey, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("listing generations: %w", err)
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.ID, &g.UserID, &g.SubjectKey, &g.ProductName, &g.ContentType, &g.Tone,
			&g.Text, &g.Model, &g.FinishReason, &g.TokensUsed, &g.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning generation: %w", err)
		}
		out = append(out, g)
	}
	return out, total, rows.Err()
}
