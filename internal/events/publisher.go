package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
// A nil Publisher is valid and drops everything, so callers need no nil
// checks when the event bus is not configured.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishGenerationSettled publishes a settled generation.
func (p *Publisher) PublishGenerationSettled(ctx context.Context, event GenerationSettled) error {
	return p.publish(ctx, SubjectGenerationSettled, event)
}

// PublishQuotaRejected publishes a gate rejection.
func (p *Publisher) PublishQuotaRejected(ctx context.Context, event QuotaRejected) error {
	return p.publish(ctx, SubjectQuotaRejected, event)
}

// PublishPlanChanged publishes a plan tier change.
func (p *Publisher) PublishPlanChanged(ctx context.Context, event PlanChanged) error {
	return p.publish(ctx, SubjectPlanChanged, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
