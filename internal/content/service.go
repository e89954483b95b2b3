package content

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/copyforge-platform/copyforge/internal/events"
	"github.com/copyforge-platform/copyforge/internal/generator"
	"github.com/copyforge-platform/copyforge/internal/metering"
	"github.com/copyforge-platform/copyforge/internal/metrics"
	"github.com/copyforge-platform/copyforge/internal/plan"
)

// Outcome is the result of a generation attempt. Quota exhaustion is a
// value, not an error: Rejected carries the gate's decision with the
// snapshot taken at evaluation time.
type Outcome struct {
	Rejected   bool
	Decision   metering.Decision
	Generation *Generation
}

// Service runs the admit, generate, settle sequence around the external
// model call and records the result.
type Service struct {
	gate      *metering.Gate
	client    generator.Client
	repo      Repository
	publisher *events.Publisher
}

func NewService(gate *metering.Gate, client generator.Client, repo Repository, publisher *events.Publisher) *Service {
	return &Service{gate: gate, client: client, repo: repo, publisher: publisher}
}

// Generate admits the subject against its quota, calls the model, and
// settles consumed tokens. A failed model call releases the admission
// without consuming quota.
func (s *Service) Generate(ctx context.Context, subj metering.Subject, req GenerateRequest) (*Outcome, error) {
	tier := string(subj.Tier())

	adm, err := s.gate.Admit(ctx, subj, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("admitting %s: %w", subj.Key(), err)
	}

	if !adm.Decision.Allowed {
		metrics.QuotaRejectionsTotal.WithLabelValues(string(adm.Decision.Reason), tier).Inc()
		if err := s.publisher.PublishQuotaRejected(ctx, events.QuotaRejected{
			SubjectKey: subj.Key(),
			Tier:       tier,
			Reason:     string(adm.Decision.Reason),
			Timestamp:  time.Now().UTC(),
		}); err != nil {
			slog.Warn("publishing quota rejection", "error", err)
		}
		return &Outcome{Rejected: true, Decision: adm.Decision}, nil
	}

	result, err := s.client.Generate(ctx, systemPrompt, buildPrompt(req))
	if err != nil {
		adm.Release()
		metrics.GenerationsTotal.WithLabelValues("error", tier).Inc()
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if err := adm.Settle(ctx, result.Usage.TotalTokens, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("settling usage for %s: %w", subj.Key(), err)
	}

	gen := &Generation{
		ID:           uuid.New(),
		UserID:       userIDOf(subj),
		SubjectKey:   subj.Key(),
		ProductName:  req.ProductName,
		ContentType:  req.ContentType,
		Tone:         req.Tone,
		Text:         result.Text,
		Model:        result.Model,
		FinishReason: result.FinishReason,
		TokensUsed:   result.Usage.TotalTokens,
		CreatedAt:    time.Now().UTC(),
	}

	// History is best effort: the usage is already settled, so a failed
	// insert must not fail the request.
	if err := s.repo.Create(ctx, gen); err != nil {
		slog.Error("recording generation", "error", err, "subject", subj.Key())
	}

	metrics.GenerationsTotal.WithLabelValues("success", tier).Inc()
	metrics.TokensConsumedTotal.WithLabelValues(tier).Add(float64(result.Usage.TotalTokens))

	if err := s.publisher.PublishGenerationSettled(ctx, events.GenerationSettled{
		SubjectKey:     subj.Key(),
		Tier:           tier,
		GenerationID:   gen.ID,
		Model:          result.Model,
		TokensConsumed: result.Usage.TotalTokens,
		Timestamp:      gen.CreatedAt,
	}); err != nil {
		slog.Warn("publishing settled generation", "error", err)
	}

	return &Outcome{Generation: gen}, nil
}

// Status reports the subject's current availability and plan limits. Lazy
// window resets are applied before reporting.
func (s *Service) Status(ctx context.Context, subj metering.Subject) (metering.Availability, plan.Limits, error) {
	avail, err := s.gate.Status(ctx, subj, time.Now().UTC())
	if err != nil {
		return metering.Availability{}, plan.Limits{}, err
	}
	return avail, plan.LimitsFor(subj.Tier()), nil
}

// History lists the subject's past generations, newest first.
func (s *Service) History(ctx context.Context, subj metering.Subject, page, pageSize int) ([]Generation, int64, error) {
	return s.repo.ListBySubjectKey(ctx, subj.Key(), page, pageSize)
}

func userIDOf(subj metering.Subject) *uuid.UUID {
	if durable, ok := subj.(*metering.DurableSubject); ok {
		id := durable.UserID
		return &id
	}
	return nil
}
