package metering

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/copyforge-platform/copyforge/internal/plan"
)

// Subject supplies the plan tier and ledger storage for one metered
// identity. The gate depends only on this interface and never on storage
// mechanics.
type Subject interface {
	// Key is a stable identity key used for locking and rate-limit buckets.
	Key() string
	Tier() plan.Tier
	LoadLedger(ctx context.Context, now time.Time) (*Ledger, error)
	SaveLedger(ctx context.Context, l *Ledger) error
}

// LedgerStore persists durable ledgers keyed by user id.
type LedgerStore interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, now time.Time) (*Ledger, error)
	Save(ctx context.Context, userID uuid.UUID, l *Ledger) error
}

// DurableSubject is an authenticated principal. Its ledger lives in the
// record store and survives for the lifetime of the account.
type DurableSubject struct {
	UserID   uuid.UUID
	PlanTier plan.Tier
	Store    LedgerStore
}

func (s *DurableSubject) Key() string { return "user:" + s.UserID.String() }

func (s *DurableSubject) Tier() plan.Tier { return s.PlanTier }

func (s *DurableSubject) LoadLedger(ctx context.Context, now time.Time) (*Ledger, error) {
	return s.Store.GetOrCreate(ctx, s.UserID, now)
}

func (s *DurableSubject) SaveLedger(ctx context.Context, l *Ledger) error {
	return s.Store.Save(ctx, s.UserID, l)
}

// SessionLedgerStore persists ephemeral ledgers for the lifetime of an
// anonymous session.
type SessionLedgerStore interface {
	Ledger(ctx context.Context, token string, now time.Time) (*Ledger, error)
	SaveLedger(ctx context.Context, token string, l *Ledger) error
}

// EphemeralSubject is an anonymous caller identified by a session token.
// Its ledger disappears with the session and is always on the anonymous tier.
type EphemeralSubject struct {
	Token string
	Store SessionLedgerStore
}

func (s *EphemeralSubject) Key() string { return "session:" + s.Token }

func (s *EphemeralSubject) Tier() plan.Tier { return plan.TierAnonymous }

func (s *EphemeralSubject) LoadLedger(ctx context.Context, now time.Time) (*Ledger, error) {
	return s.Store.Ledger(ctx, s.Token, now)
}

func (s *EphemeralSubject) SaveLedger(ctx context.Context, l *Ledger) error {
	return s.Store.SaveLedger(ctx, s.Token, l)
}
