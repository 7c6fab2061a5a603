package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/apperr"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/idempotency"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/metrics"
)

// DefaultSendTimeout bounds a broker send when no option overrides it.
const DefaultSendTimeout = 5 * time.Second

// SQS caps MessageGroupId at 128 characters.
const maxGroupIDLen = 128

// Reserver claims a logical key. Implemented by idempotency.Store.
type Reserver interface {
	Reserve(ctx context.Context, key, ownerHint string) (idempotency.Outcome, error)
}

// Sender delivers a message to the broker. Implemented by aws.Publisher.
type Sender interface {
	Send(ctx context.Context, msg aws.Message) error
}

// GapReporter raises an operator signal for a reserved event that was never sent.
type GapReporter interface {
	PublishGap(ctx context.Context, eventType string) error
}

// Outcome of PublishOnce.
type Outcome int

const (
	Queued Outcome = iota + 1
	DuplicateIgnored
)

func (o Outcome) String() string {
	switch o {
	case Queued:
		return "queued"
	case DuplicateIgnored:
		return "duplicate_ignored"
	default:
		return "unknown"
	}
}

// Request describes one event to publish at most once.
type Request struct {
	Type          string
	LogicalKey    string
	OwnerHint     string
	PartitionKey  string
	Topic         string // queue URL
	CorrelationID string
	Payload       any
}

// PublishGapError reports a reservation whose send failed. The key stays
// reserved, so the event needs a manual replay.
type PublishGapError struct {
	Type  string
	Key   string
	Topic string
	Err   error
}

func (e *PublishGapError) Error() string {
	return fmt.Sprintf("publish gap for %s key=%s: %v", e.Type, e.Key, e.Err)
}

func (e *PublishGapError) Unwrap() error { return e.Err }

// Publisher sends an event only after the ledger grants its reservation.
type Publisher struct {
	ledger      Reserver
	sender      Sender
	gaps        GapReporter
	sendTimeout time.Duration
	nowFunc     func() time.Time
}

type Option func(*Publisher)

func WithGapReporter(r GapReporter) Option {
	return func(p *Publisher) { p.gaps = r }
}

func WithSendTimeout(d time.Duration) Option {
	return func(p *Publisher) { p.sendTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.nowFunc = now }
}

func NewPublisher(ledger Reserver, sender Sender, opts ...Option) *Publisher {
	p := &Publisher{
		ledger:      ledger,
		sender:      sender,
		sendTimeout: DefaultSendTimeout,
		nowFunc:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishOnce reserves req.LogicalKey and, only if this call won the
// reservation, sends the event. A ledger failure sends nothing. A send
// failure after reservation returns Queued together with a *PublishGapError.
func (p *Publisher) PublishOnce(ctx context.Context, req Request) (Outcome, error) {
	if req.Type == "" || req.LogicalKey == "" || req.Topic == "" {
		return 0, apperr.Validation("events.publish", "type, logical key and topic are required")
	}
	body, err := p.encode(req)
	if err != nil {
		return 0, err
	}

	logger := zerolog.Ctx(ctx).With().
		Str("event_type", req.Type).
		Str("idempotency_key", req.LogicalKey).
		Logger()

	out, err := p.ledger.Reserve(ctx, req.LogicalKey, req.OwnerHint)
	if err != nil {
		metrics.Publishes.WithLabelValues(req.Type, "reserve_failed").Inc()
		return 0, err
	}
	if out == idempotency.AlreadyReserved {
		metrics.Publishes.WithLabelValues(req.Type, DuplicateIgnored.String()).Inc()
		logger.Debug().Msg("duplicate event ignored")
		return DuplicateIgnored, nil
	}

	// The key is ours now. Detach from the caller so an aborted request does
	// not cancel a send that is already underway; the timeout still bounds it.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.sendTimeout)
	defer cancel()

	start := time.Now()
	err = p.sender.Send(sendCtx, aws.Message{
		QueueURL:        req.Topic,
		Body:            string(body),
		GroupID:         groupID(req.PartitionKey),
		DeduplicationID: req.LogicalKey,
		Attributes: map[string]string{
			"event_type":      req.Type,
			"idempotency_key": req.LogicalKey,
			"partition_key":   req.PartitionKey,
			"correlation_id":  req.CorrelationID,
		},
	})
	metrics.PublishDuration.WithLabelValues(req.Type).Observe(time.Since(start).Seconds())
	if err != nil {
		p.reportGap(ctx, logger, req, err)
		return Queued, &PublishGapError{
			Type:  req.Type,
			Key:   req.LogicalKey,
			Topic: req.Topic,
			Err:   apperr.Transient("events.send", err),
		}
	}

	metrics.Publishes.WithLabelValues(req.Type, Queued.String()).Inc()
	logger.Info().Str("partition_key", req.PartitionKey).Msg("event queued")
	return Queued, nil
}

func (p *Publisher) encode(req Request) ([]byte, error) {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", req.Type, err)
	}
	body, err := json.Marshal(Envelope{
		Type:           req.Type,
		IdempotencyKey: req.LogicalKey,
		CorrelationID:  req.CorrelationID,
		OccurredAt:     p.nowFunc().UTC(),
		Payload:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return body, nil
}

func (p *Publisher) reportGap(ctx context.Context, logger zerolog.Logger, req Request, sendErr error) {
	metrics.Publishes.WithLabelValues(req.Type, "send_failed").Inc()
	metrics.PublishGaps.WithLabelValues(req.Type).Inc()
	logger.Error().Err(sendErr).
		Str("topic", req.Topic).
		Str("owner_hint", req.OwnerHint).
		Msg("event reserved but not sent; manual replay required")
	if p.gaps == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.sendTimeout)
	defer cancel()
	if err := p.gaps.PublishGap(ctx, req.Type); err != nil {
		logger.Warn().Err(err).Msg("failed to emit publish gap metric")
	}
}

func groupID(partitionKey string) string {
	if len(partitionKey) <= maxGroupIDLen {
		return partitionKey
	}
	return idempotency.DeriveKey("partition", partitionKey)
}
