package billing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"

	"github.com/copyforge-platform/copyforge/internal/events"
	"github.com/copyforge-platform/copyforge/internal/plan"
	"github.com/copyforge-platform/copyforge/internal/users"
)

// ErrInvalidSignature means the webhook failed signature verification.
var ErrInvalidSignature = fmt.Errorf("invalid webhook signature")

// Service verifies Paddle webhooks and applies the resulting plan changes.
type Service struct {
	verifier   *paddle.WebhookVerifier
	userSvc    *users.Service
	publisher  *events.Publisher
	priceTiers map[string]plan.Tier
}

func NewService(webhookSecret string, priceTiers map[string]plan.Tier, userSvc *users.Service, publisher *events.Publisher) *Service {
	return &Service{
		verifier:   NewVerifier(webhookSecret),
		userSvc:    userSvc,
		publisher:  publisher,
		priceTiers: priceTiers,
	}
}

// VerifyAndParse checks the webhook signature and extracts the event.
func (s *Service) VerifyAndParse(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := s.verifier.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("verifying webhook signature: %w", err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	return parseEvent(payload)
}

// Apply moves the account to the tier the event dictates. Events that carry
// no plan change, or that concern no known account, are acknowledged and
// skipped so Paddle does not retry them forever.
func (s *Service) Apply(ctx context.Context, event *WebhookEvent) error {
	tier, ok := tierFor(event, s.priceTiers)
	if !ok {
		slog.Debug("ignoring billing event", "event_type", event.EventType, "price_id", event.PriceID)
		return nil
	}

	if event.UserID == uuid.Nil {
		slog.Warn("billing event without user id", "event_type", event.EventType, "event_id", event.EventID)
		return nil
	}

	user, err := s.userSvc.GetByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("loading user for plan change: %w", err)
	}
	if user == nil {
		slog.Warn("billing event for unknown user", "user_id", event.UserID, "event_id", event.EventID)
		return nil
	}

	if user.Plan == tier {
		return nil
	}

	if err := s.userSvc.ChangePlan(ctx, event.UserID, tier); err != nil {
		return fmt.Errorf("changing plan: %w", err)
	}

	slog.Info("plan changed", "user_id", event.UserID, "from", user.Plan, "to", tier, "event_type", event.EventType)

	if err := s.publisher.PublishPlanChanged(ctx, events.PlanChanged{
		UserID:    event.UserID,
		NewTier:   string(tier),
		Source:    "paddle_webhook",
		Timestamp: time.Now().UTC(),
	}); err != nil {
		slog.Warn("publishing plan change", "error", err)
	}
	return nil
}
