package metering

import (
	"time"

	"github.com/copyforge-platform/copyforge/internal/plan"
)

// Ledger holds the usage counters for one identity within the current daily
// and monthly windows. Counters only grow within a window and zero exactly
// once per window transition; resets are applied lazily on every touch.
type Ledger struct {
	DailyTokens        int       `json:"daily_tokens"`
	MonthlyTokens      int       `json:"monthly_tokens"`
	DailyGenerations   int       `json:"daily_generations"`
	MonthlyGenerations int       `json:"monthly_generations"`
	DailyResetAt       time.Time `json:"daily_reset_at"`
	MonthlyResetAt     time.Time `json:"monthly_reset_at"`

	// Version is the storage concurrency token for durable ledgers.
	// Ephemeral ledgers leave it at zero.
	Version int64 `json:"-"`
}

// NewLedger returns an empty ledger with both windows anchored at now.
func NewLedger(now time.Time) *Ledger {
	return &Ledger{DailyResetAt: now, MonthlyResetAt: now}
}

// ApplyResets rolls stale windows forward, zeroing the counters that belong
// to an expired window. Returns true if anything changed, in which case the
// caller is expected to persist the ledger.
func (l *Ledger) ApplyResets(now time.Time) bool {
	changed := false
	if NeedsDailyReset(l.DailyResetAt, now) {
		l.DailyTokens = 0
		l.DailyGenerations = 0
		l.DailyResetAt = now
		changed = true
	}
	if NeedsMonthlyReset(l.MonthlyResetAt, now) {
		l.MonthlyTokens = 0
		l.MonthlyGenerations = 0
		l.MonthlyResetAt = now
		changed = true
	}
	return changed
}

// Record commits one settled generation. Window resets are re-applied first
// so a request straddling midnight records against the new window.
func (l *Ledger) Record(tokensConsumed int, now time.Time) {
	l.ApplyResets(now)
	l.DailyGenerations++
	l.MonthlyGenerations++
	l.DailyTokens += tokensConsumed
	l.MonthlyTokens += tokensConsumed
}

// Availability is a point-in-time quota snapshot. Remaining counts are
// floored at zero for display; CanGenerate is computed from the raw values.
type Availability struct {
	CanGenerate            bool `json:"can_generate"`
	DailyTokensRemaining   int  `json:"daily_tokens_remaining"`
	MonthlyTokensRemaining int  `json:"monthly_tokens_remaining"`
	GenerationsUsed        int  `json:"generations_used"`
	GenerationsLimit       int  `json:"generations_limit"` // plan.Unlimited when uncapped
	GenerationsRemaining   int  `json:"generations_remaining"`
}

// Evaluate applies stale-window resets and computes availability against the
// given limits. It mutates the ledger only through ApplyResets.
func (l *Ledger) Evaluate(limits plan.Limits, now time.Time) Availability {
	l.ApplyResets(now)

	dailyRemaining := limits.DailyTokens - l.DailyTokens
	monthlyRemaining := limits.MonthlyTokens - l.MonthlyTokens

	can := dailyRemaining > 0 && monthlyRemaining > 0
	if limits.MonthlyGenerations != plan.Unlimited && l.MonthlyGenerations >= limits.MonthlyGenerations {
		can = false
	}
	if limits.DailyGenerations != plan.Unlimited && l.DailyGenerations >= limits.DailyGenerations {
		can = false
	}

	generationsRemaining := plan.Unlimited
	if limits.MonthlyGenerations != plan.Unlimited {
		generationsRemaining = clampZero(limits.MonthlyGenerations - l.MonthlyGenerations)
	}

	return Availability{
		CanGenerate:            can,
		DailyTokensRemaining:   clampZero(dailyRemaining),
		MonthlyTokensRemaining: clampZero(monthlyRemaining),
		GenerationsUsed:        l.MonthlyGenerations,
		GenerationsLimit:       limits.MonthlyGenerations,
		GenerationsRemaining:   generationsRemaining,
	}
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
