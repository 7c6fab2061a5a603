package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/apperr"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/metrics"
)

const keyAttr = "idempotency_key"

// DefaultTimeout bounds each store call when no timeout option is given.
const DefaultTimeout = 3 * time.Second

// Store is the idempotency ledger backed by a DynamoDB table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // sets expires_at for TTL housekeeping
	timeout   time.Duration
	nowFunc   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout bounds every store call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.nowFunc = now }
}

// NewStore returns a configured Store.
// tableName: DynamoDB table name for idempotency entries.
// ttlWindow: retention for expires_at (e.g., 48*time.Hour); zero disables it.
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration, opts ...Option) *Store {
	s := &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		timeout:   DefaultTimeout,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve claims key with a single conditional insert. It returns Reserved
// only when this call created the record; any existing record, including one
// written by a concurrent identical attempt, yields AlreadyReserved. Store
// failures and timeouts are transient errors and the caller must not act.
func (s *Store) Reserve(ctx context.Context, key, ownerHint string) (Outcome, error) {
	if key == "" {
		return 0, apperr.Validation("ledger.reserve", "empty idempotency key")
	}

	now := s.nowFunc().UTC()
	rec := IdempotencyRecord{
		IdempotencyKey: key,
		OwnerHint:      ownerHint,
		CreatedAt:      now,
	}
	if s.ttlWindow > 0 {
		rec.ExpiresAt = now.Add(s.ttlWindow).Unix()
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := aws.PutIfAbsent(ctx, s.client, s.tableName, keyAttr, item)
	if err != nil {
		metrics.Reservations.WithLabelValues("error").Inc()
		return 0, apperr.Transient("ledger.reserve", err)
	}
	if !created {
		metrics.Reservations.WithLabelValues(AlreadyReserved.String()).Inc()
		return AlreadyReserved, nil
	}
	metrics.Reservations.WithLabelValues(Reserved.String()).Inc()
	return Reserved, nil
}

// Get retrieves a record by key for diagnostics. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	item, err := aws.GetByKey(ctx, s.client, s.tableName, keyAttr, key)
	if err != nil {
		return nil, apperr.Transient("ledger.get", err)
	}
	if item == nil {
		return nil, nil
	}
	var rec IdempotencyRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}
