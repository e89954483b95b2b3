package plan

// Tier identifies a subscription plan. Anonymous callers get a pseudo-tier
// that is never stored on a user record.
type Tier string

const (
	TierAnonymous  Tier = "anonymous"
	TierFree       Tier = "free"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// Unlimited disables a limit check entirely.
const Unlimited = -1

// Limits is the quota tuple for a tier.
type Limits struct {
	DailyTokens        int `json:"daily_tokens"`
	MonthlyTokens      int `json:"monthly_tokens"`
	DailyGenerations   int `json:"daily_generations"`   // Unlimited for all paid tiers
	MonthlyGenerations int `json:"monthly_generations"` // Unlimited = no cap
	RequestsPerMinute  int `json:"requests_per_minute"` // 0 = not enforced
}

// catalog is the single source of truth for tier limits. User records store
// only the tier, never a copy of these numbers.
var catalog = map[Tier]Limits{
	TierAnonymous: {
		DailyTokens:        10_000,
		MonthlyTokens:      100_000,
		DailyGenerations:   3,
		MonthlyGenerations: 20,
		RequestsPerMinute:  0,
	},
	TierFree: {
		DailyTokens:        32_000,
		MonthlyTokens:      1_000_000,
		DailyGenerations:   Unlimited,
		MonthlyGenerations: 10,
		RequestsPerMinute:  60,
	},
	TierPremium: {
		DailyTokens:        100_000,
		MonthlyTokens:      3_000_000,
		DailyGenerations:   Unlimited,
		MonthlyGenerations: 100,
		RequestsPerMinute:  90,
	},
	TierEnterprise: {
		DailyTokens:        1_000_000,
		MonthlyTokens:      10_000_000,
		DailyGenerations:   Unlimited,
		MonthlyGenerations: Unlimited,
		RequestsPerMinute:  120,
	},
}

// LimitsFor returns the limits for the given tier. Unknown tiers fall back
// to the free tier so a bad row never grants elevated quota.
func LimitsFor(tier Tier) Limits {
	if l, ok := catalog[tier]; ok {
		return l
	}
	return catalog[TierFree]
}

// Valid reports whether the tier is a storable plan (anonymous is not).
func Valid(tier Tier) bool {
	switch tier {
	case TierFree, TierPremium, TierEnterprise:
		return true
	}
	return false
}
