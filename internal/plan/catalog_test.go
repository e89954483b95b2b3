package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsFor_Free(t *testing.T) {
	l := LimitsFor(TierFree)
	assert.Equal(t, 32_000, l.DailyTokens)
	assert.Equal(t, 1_000_000, l.MonthlyTokens)
	assert.Equal(t, 10, l.MonthlyGenerations)
	assert.Equal(t, Unlimited, l.DailyGenerations)
	assert.Equal(t, 60, l.RequestsPerMinute)
}

func TestLimitsFor_EnterpriseUnlimitedGenerations(t *testing.T) {
	l := LimitsFor(TierEnterprise)
	assert.Equal(t, Unlimited, l.MonthlyGenerations)
	assert.Equal(t, 1_000_000, l.DailyTokens)
	assert.Equal(t, 10_000_000, l.MonthlyTokens)
}

func TestLimitsFor_AnonymousDualGenerationCap(t *testing.T) {
	// Anonymous is the only tier with both a daily and a monthly generation cap.
	l := LimitsFor(TierAnonymous)
	assert.Equal(t, 3, l.DailyGenerations)
	assert.Equal(t, 20, l.MonthlyGenerations)
	assert.Equal(t, 0, l.RequestsPerMinute)
}

func TestLimitsFor_UnknownTierFallsBackToFree(t *testing.T) {
	assert.Equal(t, LimitsFor(TierFree), LimitsFor(Tier("platinum")))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(TierFree))
	assert.True(t, Valid(TierPremium))
	assert.True(t, Valid(TierEnterprise))
	assert.False(t, Valid(TierAnonymous))
	assert.False(t, Valid(Tier("")))
}
