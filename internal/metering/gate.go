package metering

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/copyforge-platform/copyforge/internal/plan"
)

// Reason explains a rejected admission.
type Reason string

const (
	ReasonGenerationLimit   Reason = "generation_limit_reached"
	ReasonDailyTokenLimit   Reason = "daily_token_limit_reached"
	ReasonMonthlyTokenLimit Reason = "monthly_token_limit_reached"
	ReasonRequestRateLimit  Reason = "request_rate_limit_reached"
)

// Message returns the user-facing text for the reason.
func (r Reason) Message() string {
	switch r {
	case ReasonGenerationLimit:
		return "Generation limit reached"
	case ReasonDailyTokenLimit:
		return "Daily token limit reached"
	case ReasonMonthlyTokenLimit:
		return "Monthly token limit reached"
	case ReasonRequestRateLimit:
		return "Too many requests, slow down"
	}
	return string(r)
}

// Decision is the outcome of Admit. Quota exhaustion is a value, never an
// error, so callers branch without error handling.
type Decision struct {
	Allowed  bool
	Reason   Reason
	Snapshot Availability
}

// Gate is the two-phase admission point around the external generation call.
// Admit checks availability and, when allowed, holds the identity's
// serialization lock until Settle or Release, so concurrent requests for one
// identity cannot both pass Admit and overshoot the quota.
type Gate struct {
	locks   *keyedLock
	limiter *RateLimiter // optional; nil disables per-minute enforcement
}

// NewGate creates a Gate. limiter may be nil.
func NewGate(limiter *RateLimiter) *Gate {
	return &Gate{locks: newKeyedLock(), limiter: limiter}
}

// Admission is a successful or rejected admission. When Allowed, the caller
// owns the identity lock and must call exactly one of Settle or Release.
type Admission struct {
	Decision Decision

	subject Subject
	ledger  *Ledger
	unlock  func()
	done    bool
}

// Admit resolves the subject's ledger, applies lazy window resets, and
// decides whether a generation may proceed. A rejected admission releases
// the identity lock before returning.
func (g *Gate) Admit(ctx context.Context, subj Subject, now time.Time) (*Admission, error) {
	limits := plan.LimitsFor(subj.Tier())
	unlock := g.locks.Lock(subj.Key())

	ledger, avail, err := g.loadAndEvaluate(ctx, subj, limits, now)
	if err != nil {
		unlock()
		return nil, err
	}

	adm := &Admission{subject: subj, ledger: ledger, unlock: unlock}

	if !avail.CanGenerate {
		adm.reject(rejectionReason(ledger, limits), avail)
		return adm, nil
	}

	// Per-minute fast path, fail open on Redis errors.
	if g.limiter != nil && limits.RequestsPerMinute > 0 {
		allowed, err := g.limiter.Allow(ctx, subj.Key(), limits.RequestsPerMinute)
		if err != nil {
			slog.Warn("metering: rate limiter check failed, allowing request", "error", err, "subject", subj.Key())
		} else if !allowed {
			adm.reject(ReasonRequestRateLimit, avail)
			return adm, nil
		}
	}

	adm.Decision = Decision{Allowed: true, Snapshot: avail}
	return adm, nil
}

// Status returns a fresh availability snapshot without admitting anything.
// Window resets are applied (and persisted) first so status never reports
// stale-window numbers.
func (g *Gate) Status(ctx context.Context, subj Subject, now time.Time) (Availability, error) {
	unlock := g.locks.Lock(subj.Key())
	defer unlock()

	_, avail, err := g.loadAndEvaluate(ctx, subj, plan.LimitsFor(subj.Tier()), now)
	if err != nil {
		return Availability{}, err
	}
	return avail, nil
}

func (g *Gate) loadAndEvaluate(ctx context.Context, subj Subject, limits plan.Limits, now time.Time) (*Ledger, Availability, error) {
	ledger, err := subj.LoadLedger(ctx, now)
	if err != nil {
		return nil, Availability{}, fmt.Errorf("loading ledger for %s: %w", subj.Key(), err)
	}

	before := *ledger
	avail := ledger.Evaluate(limits, now)

	// A window rollover is a committed mutation, not a derived view.
	if before != *ledger {
		if err := subj.SaveLedger(ctx, ledger); err != nil {
			return nil, Availability{}, fmt.Errorf("persisting window reset for %s: %w", subj.Key(), err)
		}
	}
	return ledger, avail, nil
}

// rejectionReason picks the rejection cause by priority: generation count
// first (either cap), then daily tokens, then monthly tokens.
func rejectionReason(l *Ledger, limits plan.Limits) Reason {
	if limits.MonthlyGenerations != plan.Unlimited && l.MonthlyGenerations >= limits.MonthlyGenerations {
		return ReasonGenerationLimit
	}
	if limits.DailyGenerations != plan.Unlimited && l.DailyGenerations >= limits.DailyGenerations {
		return ReasonGenerationLimit
	}
	if l.DailyTokens >= limits.DailyTokens {
		return ReasonDailyTokenLimit
	}
	return ReasonMonthlyTokenLimit
}

func (a *Admission) reject(reason Reason, avail Availability) {
	a.Decision = Decision{Allowed: false, Reason: reason, Snapshot: avail}
	a.done = true
	a.unlock()
}

// Settle commits the consumed tokens and generation count after the external
// call succeeded. It reuses the ledger loaded at Admit and re-applies window
// resets, so a request straddling midnight records against the new window.
func (a *Admission) Settle(ctx context.Context, tokensConsumed int, now time.Time) error {
	if a.done {
		return fmt.Errorf("admission for %s already settled or released", a.subject.Key())
	}
	a.done = true
	defer a.unlock()

	a.ledger.Record(tokensConsumed, now)
	if err := a.subject.SaveLedger(ctx, a.ledger); err != nil {
		return fmt.Errorf("saving ledger for %s: %w", a.subject.Key(), err)
	}
	return nil
}

// Release abandons an allowed admission without consuming quota. Safe to
// call after Settle or on a rejected admission; extra calls are no-ops.
func (a *Admission) Release() {
	if a.done {
		return
	}
	a.done = true
	a.unlock()
}
