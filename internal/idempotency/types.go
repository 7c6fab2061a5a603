package idempotency

import "time"

// Outcome is the result of a reservation attempt.
type Outcome int

const (
	// Reserved means this caller's insert created the record.
	Reserved Outcome = iota + 1
	// AlreadyReserved means a record for the key existed, whoever wrote it.
	AlreadyReserved
)

func (o Outcome) String() string {
	switch o {
	case Reserved:
		return "reserved"
	case AlreadyReserved:
		return "already_reserved"
	default:
		return "unknown"
	}
}

// IdempotencyRecord is the shape persisted in the idempotency DynamoDB table.
// Records are inserted once and never updated.
type IdempotencyRecord struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"`      // PK
	OwnerHint      string    `dynamodbav:"owner_hint,omitempty"` // e.g. submitter email, not part of uniqueness
	CreatedAt      time.Time `dynamodbav:"created_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at,omitempty"` // TTL epoch seconds
}
