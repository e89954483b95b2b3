package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// Consumer listens on the usage event stream and persists every event to the
// database for offline analysis.
type Consumer struct {
	repo *Repository
	js   jetstream.JetStream
}

// NewConsumer creates a usage event Consumer.
func NewConsumer(repo *Repository, js jetstream.JetStream) *Consumer {
	return &Consumer{repo: repo, js: js}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, StreamEvents, jetstream.ConsumerConfig{
		Durable:       "usage-persister",
		FilterSubject: "copyforge.events.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return err
	}

	slog.Info("usage event consumer started", "consumer", "usage-persister")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("usage consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	event := &UsageEvent{
		ID:         uuid.New(),
		Subject:    msg.Subject(),
		SubjectKey: subjectKeyOf(msg.Data()),
		Payload:    msg.Data(),
		CreatedAt:  time.Now().UTC(),
	}

	if err := c.repo.Insert(ctx, event); err != nil {
		slog.Error("usage consumer: persisting event", "error", err, "subject", msg.Subject())
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()

	slog.Debug("usage consumer: persisted event", "subject", msg.Subject(), "subject_key", event.SubjectKey)
}

// subjectKeyOf pulls the identity key out of the payload when present, so
// events can be queried per identity without parsing JSONB.
func subjectKeyOf(data []byte) string {
	var probe struct {
		SubjectKey string `json:"subject_key"`
		UserID     string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	if probe.SubjectKey != "" {
		return probe.SubjectKey
	}
	if probe.UserID != "" {
		return "user:" + probe.UserID
	}
	return ""
}
