package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/copyforge-platform/copyforge/internal/metering"
)

const keyPrefix = "session:anon:"

// Store keeps anonymous usage ledgers in Redis for the lifetime of the
// session. The ledger has no expiry of its own: it lives and dies with the
// session key's TTL. It implements metering.SessionLedgerStore.
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewStore creates a session Store with the given session TTL.
func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// NewToken mints an opaque session token.
func NewToken() string {
	return uuid.NewString()
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Ledger returns the session's ledger, starting a fresh one on first use.
// A corrupted payload is treated as a fresh session rather than an error.
func (s *Store) Ledger(ctx context.Context, token string, now time.Time) (*metering.Ledger, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return metering.NewLedger(now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session ledger: %w", err)
	}

	var l metering.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return metering.NewLedger(now), nil
	}
	return &l, nil
}

// SaveLedger writes the ledger back. The TTL is anchored on first write and
// never extended afterwards, so usage cannot keep a session alive forever.
func (s *Store) SaveLedger(ctx context.Context, token string, l *metering.Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshaling session ledger: %w", err)
	}

	key := keyPrefix + token
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, key, data, redis.KeepTTL)
	pipe.ExpireNX(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving session ledger: %w", err)
	}
	return nil
}
