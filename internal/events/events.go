package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds all usage and billing events.
const StreamEvents = "COPYFORGE_EVENTS"

// Subject constants.
const (
	SubjectGenerationSettled = "copyforge.events.generation.settled"
	SubjectQuotaRejected     = "copyforge.events.quota.rejected"
	SubjectPlanChanged       = "copyforge.events.plan.changed"
)

// GenerationSettled is published after a generation's token usage is
// committed to the subject's ledger.
type GenerationSettled struct {
	SubjectKey     string    `json:"subject_key"`
	Tier           string    `json:"tier"`
	GenerationID   uuid.UUID `json:"generation_id"`
	Model          string    `json:"model"`
	TokensConsumed int       `json:"tokens_consumed"`
	Timestamp      time.Time `json:"timestamp"`
}

// QuotaRejected is published when the metering gate refuses an admission.
type QuotaRejected struct {
	SubjectKey string    `json:"subject_key"`
	Tier       string    `json:"tier"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// PlanChanged is published when a billing webhook moves an account to a
// different tier.
type PlanChanged struct {
	UserID    uuid.UUID `json:"user_id"`
	NewTier   string    `json:"new_tier"`
	Source    string    `json:"source"` // e.g. "paddle_webhook"
	Timestamp time.Time `json:"timestamp"`
}
