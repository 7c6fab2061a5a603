// Package consumer materializes published events into the downstream tables.
// Delivery is at least once, so every handler tolerates redelivery and the
// synchronous writer having created the row first.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/accounts"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/auth"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/events"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/metrics"
)

// ErrUnknownType is returned for an event type no handler owns. The message
// should go to the dead-letter queue.
var ErrUnknownType = errors.New("unknown event type")

// Result of handling one event.
type Result int

const (
	Materialized Result = iota + 1
	Skipped
)

func (r Result) String() string {
	switch r {
	case Materialized:
		return "materialized"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Consumer handles decoded envelopes.
type Consumer struct {
	accounts *accounts.Store
	contacts *ContactStore
	nowFunc  func() time.Time
}

func New(accountStore *accounts.Store, contacts *ContactStore) *Consumer {
	return &Consumer{accounts: accountStore, contacts: contacts, nowFunc: time.Now}
}

// HandleMessage decodes a broker message body and handles it.
func (c *Consumer) HandleMessage(ctx context.Context, body []byte) (Result, error) {
	env, err := events.Decode(body)
	if err != nil {
		metrics.ConsumedEvents.WithLabelValues("unknown", "failed").Inc()
		return 0, err
	}
	return c.Handle(ctx, env)
}

// Handle materializes env. Replaying an event any number of times has no
// effect beyond the first successful insert.
func (c *Consumer) Handle(ctx context.Context, env events.Envelope) (Result, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("event_type", env.Type).
		Str("idempotency_key", env.IdempotencyKey).
		Str("correlation_id", env.CorrelationID).
		Logger()
	ctx = logger.WithContext(ctx)

	var (
		res Result
		err error
	)
	switch env.Type {
	case events.TypeUserRegistered:
		res, err = c.userRegistered(ctx, env)
	case events.TypeSubmissionReceived:
		res, err = c.submissionReceived(ctx, env)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		metrics.ConsumedEvents.WithLabelValues(env.Type, "failed").Inc()
		logger.Error().Err(err).Msg("event handling failed")
		return 0, err
	}
	metrics.ConsumedEvents.WithLabelValues(env.Type, res.String()).Inc()
	logger.Info().Str("result", res.String()).Msg("event handled")
	return res, nil
}

func (c *Consumer) userRegistered(ctx context.Context, env events.Envelope) (Result, error) {
	var ev events.UserRegistered
	if err := env.DecodePayload(&ev); err != nil {
		return 0, err
	}
	username := strings.TrimSpace(ev.Username)
	if username == "" {
		return 0, fmt.Errorf("%w: user.registered without username", events.ErrMalformedEnvelope)
	}
	role, ok := auth.ParseRole(ev.Role)
	if !ok {
		return 0, fmt.Errorf("%w: user.registered with unknown role %q", events.ErrMalformedEnvelope, ev.Role)
	}

	existing, err := c.accounts.Get(ctx, username)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return Skipped, nil
	}

	createdAt := c.nowFunc().UTC()
	if ev.OccurredAtEpochMillis > 0 {
		createdAt = time.UnixMilli(ev.OccurredAtEpochMillis).UTC()
	}
	res, err := c.accounts.Create(ctx, accounts.Account{
		Username:       username,
		CredentialHash: accounts.ExternalCredential,
		Role:           string(role),
		Source:         accounts.SourceEvent,
		CreatedAt:      createdAt,
	})
	if err != nil {
		return 0, err
	}
	if res == accounts.Conflict {
		zerolog.Ctx(ctx).Debug().Str("username", username).Msg("account created concurrently")
		return Skipped, nil
	}
	return Materialized, nil
}

func (c *Consumer) submissionReceived(ctx context.Context, env events.Envelope) (Result, error) {
	var sub events.Submission
	if err := env.DecodePayload(&sub); err != nil {
		return 0, err
	}
	if strings.TrimSpace(sub.Email) == "" {
		return 0, fmt.Errorf("%w: submission without email", events.ErrMalformedEnvelope)
	}

	// recomputed from content; the envelope key belongs to the producer's ledger
	id := sub.Key()
	exists, err := c.contacts.Exists(ctx, id)
	if err != nil {
		return 0, err
	}
	if exists {
		return Skipped, nil
	}

	created, err := c.contacts.Insert(ctx, Contact{
		SubmissionID:  id,
		FullName:      sub.FullName,
		Email:         strings.TrimSpace(sub.Email),
		Message:       derefString(sub.Message),
		CorrelationID: env.CorrelationID,
		ReceivedAt:    c.nowFunc().UTC(),
	})
	if err != nil {
		return 0, err
	}
	if !created {
		return Skipped, nil
	}
	return Materialized, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
