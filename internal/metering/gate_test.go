package metering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyforge-platform/copyforge/internal/plan"
)

// fakeSubject backs a subject with an in-memory ledger, handing out copies
// on load like a real record store would.
type fakeSubject struct {
	mu      sync.Mutex
	key     string
	tier    plan.Tier
	stored  Ledger
	saves   int
	loadErr error
	saveErr error
}

func newFakeSubject(tier plan.Tier, now time.Time) *fakeSubject {
	return &fakeSubject{key: "test:" + string(tier), tier: tier, stored: *NewLedger(now)}
}

func (f *fakeSubject) Key() string     { return f.key }
func (f *fakeSubject) Tier() plan.Tier { return f.tier }

func (f *fakeSubject) LoadLedger(_ context.Context, _ time.Time) (*Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	l := f.stored
	return &l, nil
}

func (f *fakeSubject) SaveLedger(_ context.Context, l *Ledger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored = *l
	f.saves++
	return nil
}

func TestGate_AdmitAndSettle(t *testing.T) {
	now := ts(2026, time.March, 10, 14)
	subj := newFakeSubject(plan.TierFree, now)
	gate := NewGate(nil)

	adm, err := gate.Admit(context.Background(), subj, now)
	require.NoError(t, err)
	require.True(t, adm.Decision.Allowed)
	assert.Equal(t, 32_000, adm.Decision.Snapshot.DailyTokensRemaining)

	require.NoError(t, adm.Settle(context.Background(), 1_500, now))

	assert.Equal(t, 1_500, subj.stored.DailyTokens)
	assert.Equal(t, 1_500, subj.stored.MonthlyTokens)
	assert.Equal(t, 1, subj.stored.MonthlyGenerations)
}

func TestGate_RejectionPriority(t *testing.T) {
	now := ts(2026, time.March, 10, 14)

	tests := []struct {
		name   string
		mutate func(l *Ledger)
		want   Reason
	}{
		{
			"generation limit wins over token limits",
			func(l *Ledger) {
				l.MonthlyGenerations = 10
				l.DailyTokens = 32_000
				l.MonthlyTokens = 1_000_000
			},
			ReasonGenerationLimit,
		},
		{
			"generation limit with tokens still available",
			func(l *Ledger) { l.MonthlyGenerations = 10 },
			ReasonGenerationLimit,
		},
		{
			"daily tokens before monthly tokens",
			func(l *Ledger) { l.DailyTokens = 32_000 },
			ReasonDailyTokenLimit,
		},
		{
			"monthly tokens last",
			func(l *Ledger) { l.MonthlyTokens = 1_000_000 },
			ReasonMonthlyTokenLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subj := newFakeSubject(plan.TierFree, now)
			tt.mutate(&subj.stored)
			gate := NewGate(nil)

			adm, err := gate.Admit(context.Background(), subj, now)
			require.NoError(t, err)
			assert.False(t, adm.Decision.Allowed)
			assert.Equal(t, tt.want, adm.Decision.Reason)
		})
	}
}

func TestGate_AnonymousDailyCap(t *testing.T) {
	now := ts(2026, time.March, 10, 14)
	subj := newFakeSubject(plan.TierAnonymous, now)
	subj.stored.DailyGenerations = 3
	subj.stored.MonthlyGenerations = 5
	gate := NewGate(nil)

	adm, err := gate.Admit(context.Background(), subj, now)
	require.NoError(t, err)
	assert.False(t, adm.Decision.Allowed)
	assert.Equal(t, ReasonGenerationLimit, adm.Decision.Reason)
}

func TestGate_ReleaseConsumesNothing(t *testing.T) {
	now := ts(2026, time.March, 10, 14)
	subj := newFakeSubject(plan.TierFree, now)
	gate := NewGate(nil)

	adm, err := gate.Admit(context.Background(), subj, now)
	require.NoError(t, err)
	require.True(t, adm.Decision.Allowed)

	// external call failed: no settle
	adm.Release()

	assert.Equal(t, 0, subj.stored.DailyTokens)
	assert.Equal(t, 0, subj.stored.MonthlyGenerations)

	// a second admit proceeds normally
	adm2, err := gate.Admit(context.Background(), subj, now)
	require.NoError(t, err)
	assert.True(t, adm2.Decision.Allowed)
	adm2.Release()
}

func TestGate_SettleAfterReleaseFails(t *testing.T) {
	now := ts(2026, time.March, 10, 14)
	subj := newFakeSubject(plan.TierFree, now)
	gate := NewGate(nil)

	adm, err := gate.Admit(context.Background(), subj, now)
	require.NoError(t, err)
	adm.Release()

	assert.Error(t, adm.Settle(context.Background(), 10, now))
	assert.Equal(t, 0, subj.stored.DailyTokens)
}

func TestGate_FreeTierOvershootThenRejected(t *testing.T) {
	now := ts(2026, time.March, 10, 14)
	subj := newFakeSubject(plan.TierFree, now)
	subj.stored.DailyTokens = 31_990
	gate := NewGate(nil)

	adm, err := gate.Admit(context.Background(), subj, now)
	require.NoError(t, err)
	require.True(t, adm.Decision.Allowed)
	assert.Equal(t, 10, adm.Decision.Snapshot.DailyTokensRemaining)

	require.NoError(t, adm.Settle(context.Background(), 15, now))
	assert.Equal(t, 32_005, subj.stored.DailyTokens)

	adm2, err := gate.Admit(context.Background(), subj, now)
	require.NoError(t, err)
	assert.False(t, adm2.Decision.Allowed)
	assert.Equal(t, ReasonDailyTokenLimit, adm2.Decision.Reason)
	assert.Equal(t, 0, adm2.Decision.Snapshot.DailyTokensRemaining)
}

func TestGate_ConcurrentAdmitsCannotOvershoot(t *testing.T) {
	now := ts(2026, time.March, 10, 14)
	subj := newFakeSubject(plan.TierFree, now)
	subj.stored.DailyTokens = 31_990 // room for exactly one more request
	gate := NewGate(nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	settled := 0

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adm, err := gate.Admit(context.Background(), subj, now)
			if err != nil || !adm.Decision.Allowed {
				return
			}
			if err := adm.Settle(context.Background(), 15, now); err == nil {
				mu.Lock()
				settled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, settled, "only one request fits under the daily limit")
	assert.Equal(t, 32_005, subj.stored.DailyTokens)
}

func TestGate_StatusAppliesLazyResetAndIsReadOnly(t *testing.T) {
	subj := newFakeSubject(plan.TierFree, ts(2026, time.March, 10, 14))
	subj.stored.DailyTokens = 500
	gate := NewGate(nil)

	today := ts(2026, time.March, 11, 9)
	first, err := gate.Status(context.Background(), subj, today)
	require.NoError(t, err)
	assert.Equal(t, 32_000, first.DailyTokensRemaining)
	assert.Equal(t, 1, subj.saves, "window rollover is persisted")

	second, err := gate.Status(context.Background(), subj, today)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, subj.saves, "repeat reads do not write")
}

func TestGate_LedgerLoadErrorSurfaces(t *testing.T) {
	now := ts(2026, time.March, 10, 14)
	subj := newFakeSubject(plan.TierFree, now)
	subj.loadErr = errors.New("connection refused")
	gate := NewGate(nil)

	_, err := gate.Admit(context.Background(), subj, now)
	assert.Error(t, err)
}

func TestGate_PerMinuteLimit(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	limiter := NewRateLimiter(rdb)

	now := ts(2026, time.March, 10, 14)
	subj := newFakeSubject(plan.TierFree, now)
	gate := NewGate(limiter)

	// Fill the sliding window to the free-tier RPM limit.
	for i := 0; i < plan.LimitsFor(plan.TierFree).RequestsPerMinute; i++ {
		allowed, err := limiter.Allow(context.Background(), subj.Key(), plan.LimitsFor(plan.TierFree).RequestsPerMinute)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	adm, err := gate.Admit(context.Background(), subj, now)
	require.NoError(t, err)
	assert.False(t, adm.Decision.Allowed)
	assert.Equal(t, ReasonRequestRateLimit, adm.Decision.Reason)
}

func TestGate_AnonymousSkipsPerMinuteLimit(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})

	now := ts(2026, time.March, 10, 14)
	subj := newFakeSubject(plan.TierAnonymous, now)
	gate := NewGate(NewRateLimiter(rdb))

	adm, err := gate.Admit(context.Background(), subj, now)
	require.NoError(t, err)
	assert.True(t, adm.Decision.Allowed)
	adm.Release()

	usage, err := NewRateLimiter(rdb).MinuteUsage(context.Background(), subj.Key())
	require.NoError(t, err)
	assert.Equal(t, 0, usage, "anonymous tier has no per-minute bucket")
}
