package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/copyforge-platform/copyforge/internal/plan"
)

// User is a registered account. Plan holds the current tier only; the limit
// numbers always come from the plan catalog so upgrades never leave stale
// denormalized copies behind.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Plan         plan.Tier `json:"plan"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
