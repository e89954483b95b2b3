package metering

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists durable ledgers in the usage_ledgers table.
// It implements LedgerStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new ledger Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetOrCreate returns the user's ledger row, creating an empty one anchored
// at now if it doesn't exist.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID, now time.Time) (*Ledger, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO usage_ledgers (user_id, daily_reset_at, monthly_reset_at)
		 VALUES ($1, $2, $2) ON CONFLICT (user_id) DO NOTHING`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("ensuring usage ledger: %w", err)
	}

	var l Ledger
	err = r.pool.QueryRow(ctx,
		`SELECT daily_tokens, monthly_tokens, daily_generations, monthly_generations,
		        daily_reset_at, monthly_reset_at, version
		 FROM usage_ledgers WHERE user_id = $1`, userID,
	).Scan(&l.DailyTokens, &l.MonthlyTokens, &l.DailyGenerations, &l.MonthlyGenerations,
		&l.DailyResetAt, &l.MonthlyResetAt, &l.Version)
	if err != nil {
		return nil, fmt.Errorf("fetching usage ledger: %w", err)
	}
	return &l, nil
}

// Save writes the ledger back and bumps its version. The gate serializes
// writers per identity; the version column exists so a multi-node deployment
// can switch to optimistic writes without a schema change.
func (r *Repository) Save(ctx context.Context, userID uuid.UUID, l *Ledger) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE usage_ledgers
		 SET daily_tokens = $2,
		     monthly_tokens = $3,
		     daily_generations = $4,
		     monthly_generations = $5,
		     daily_reset_at = $6,
		     monthly_reset_at = $7,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE user_id = $1`,
		userID, l.DailyTokens, l.MonthlyTokens, l.DailyGenerations, l.MonthlyGenerations,
		l.DailyResetAt, l.MonthlyResetAt)
	if err != nil {
		return fmt.Errorf("saving usage ledger: %w", err)
	}
	l.Version++
	return nil
}

// Delete removes the ledger row. Called only when the account is deleted.
func (r *Repository) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM usage_ledgers WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deleting usage ledger: %w", err)
	}
	return nil
}
