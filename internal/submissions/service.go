// Package submissions accepts contact form submissions and enqueues each
// distinct submission at most once.
package submissions

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/apperr"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/events"
)

// EventPublisher is implemented by events.Publisher.
type EventPublisher interface {
	PublishOnce(ctx context.Context, req events.Request) (events.Outcome, error)
}

// Input is a validated submission.
type Input struct {
	FullName      string
	Email         string
	Message       *string
	CorrelationID string
}

// Result is what the caller sees. Gap is set when the event was reserved but
// never reached the broker; the caller still sees Queued.
type Result struct {
	Outcome events.Outcome
	Gap     *events.PublishGapError
}

type Service struct {
	publisher EventPublisher
	topic     string
}

// NewService returns a Service sending to the submissions queue at topic.
func NewService(publisher EventPublisher, topic string) *Service {
	return &Service{publisher: publisher, topic: topic}
}

// Submit publishes a submission.received event unless identical content was
// already accepted.
func (s *Service) Submit(ctx context.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.FullName) == "" || strings.TrimSpace(in.Email) == "" {
		return Result{}, apperr.Validation("submissions.submit", "fullName and email are required")
	}
	if s.topic == "" {
		return Result{}, apperr.E(apperr.KindUnknown, "submissions.submit", errors.New("submissions queue not configured"))
	}

	payload := events.Submission{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.TrimSpace(in.Email),
		Message:  in.Message,
	}
	out, err := s.publisher.PublishOnce(ctx, events.Request{
		Type:          events.TypeSubmissionReceived,
		LogicalKey:    payload.Key(),
		OwnerHint:     payload.Email,
		PartitionKey:  strings.ToLower(payload.Email),
		Topic:         s.topic,
		CorrelationID: in.CorrelationID,
		Payload:       payload,
	})

	var gap *events.PublishGapError
	if errors.As(err, &gap) {
		// reported by the publisher; the submission stays accepted
		zerolog.Ctx(ctx).Warn().Str("idempotency_key", gap.Key).Msg("submission accepted with publish gap")
		return Result{Outcome: out, Gap: gap}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: out}, nil
}
