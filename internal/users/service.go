package users

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/copyforge-platform/copyforge/internal/plan"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new account on the free tier.
func (s *Service) Create(ctx context.Context, email, name, passwordHash string) (*User, error) {
	now := time.Now()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Plan:         plan.TierFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, email)
}

// ChangePlan moves the account to the given tier. The tier must be a
// storable plan; anonymous is never persisted.
func (s *Service) ChangePlan(ctx context.Context, id uuid.UUID, tier plan.Tier) error {
	if !plan.Valid(tier) {
		return ErrInvalidTier
	}
	return s.repo.UpdatePlan(ctx, id, tier)
}
