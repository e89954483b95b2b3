package billing

import (
	"encoding/json"
	"fmt"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"

	"github.com/copyforge-platform/copyforge/internal/plan"
)

// WebhookEvent is the subset of a Paddle webhook we act on.
type WebhookEvent struct {
	EventID    string
	EventType  string
	OccurredAt time.Time
	UserID     uuid.UUID
	PriceID    string
	Status     string
}

// NewVerifier creates a signature verifier for the configured webhook secret.
func NewVerifier(webhookSecret string) *paddle.WebhookVerifier {
	return paddle.NewWebhookVerifier(webhookSecret)
}

// parseEvent extracts the event type, price and the account it concerns.
// The user id travels in custom_data, set when the checkout link is created.
func parseEvent(payload []byte) (*WebhookEvent, error) {
	var raw struct {
		EventID    string    `json:"event_id"`
		EventType  string    `json:"event_type"`
		OccurredAt time.Time `json:"occurred_at"`
		Data       struct {
			Status     string `json:"status"`
			CustomData struct {
				UserID string `json:"user_id"`
			} `json:"custom_data"`
			Items []struct {
				Price struct {
					ID string `json:"id"`
				} `json:"price"`
			} `json:"items"`
		} `json:"data"`
	}

	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parsing webhook payload: %w", err)
	}

	event := &WebhookEvent{
		EventID:    raw.EventID,
		EventType:  raw.EventType,
		OccurredAt: raw.OccurredAt,
		Status:     raw.Data.Status,
	}

	if raw.Data.CustomData.UserID != "" {
		userID, err := uuid.Parse(raw.Data.CustomData.UserID)
		if err != nil {
			return nil, fmt.Errorf("parsing user id in custom_data: %w", err)
		}
		event.UserID = userID
	}

	if len(raw.Data.Items) > 0 {
		event.PriceID = raw.Data.Items[0].Price.ID
	}

	return event, nil
}

// tierFor maps a webhook event to the tier the account should move to.
// Returns false when the event carries no plan change.
func tierFor(event *WebhookEvent, priceTiers map[string]plan.Tier) (plan.Tier, bool) {
	switch event.EventType {
	case "subscription.created", "subscription.activated", "subscription.updated":
		tier, ok := priceTiers[event.PriceID]
		return tier, ok
	case "subscription.canceled", "subscription.expired":
		return plan.TierFree, true
	}
	return "", false
}
