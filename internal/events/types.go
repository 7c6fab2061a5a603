package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/idempotency"
)

// Event types
const (
	TypeUserRegistered     = "user.registered"
	TypeSubmissionReceived = "submission.received"
)

// Envelope is the message body sent to the broker.
type Envelope struct {
	Type           string          `json:"type"`
	IdempotencyKey string          `json:"idempotencyKey"`
	CorrelationID  string          `json:"correlationId,omitempty"`
	OccurredAt     time.Time       `json:"occurredAt"`
	Payload        json.RawMessage `json:"payload"`
}

// UserRegistered is published once an account has been persisted.
// It never carries a credential.
type UserRegistered struct {
	Username              string `json:"username"`
	Role                  string `json:"role"`
	OccurredAtEpochMillis int64  `json:"occurredAtEpochMillis"`
}

// Submission is a contact form submission bound for the downstream CRM store.
type Submission struct {
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Message  *string `json:"message,omitempty"`
}

// Key namespaces in the shared ledger table.
const (
	namespaceUser       = "user.registered"
	namespaceSubmission = "submission"
)

// UserKey is the logical key of a user.registered event.
func UserKey(username string) string {
	return idempotency.DeriveKey(namespaceUser, username)
}

// Key fingerprints the submission content. The email is case-folded, and a
// missing message equals an empty one.
func (s Submission) Key() string {
	return idempotency.DeriveKey(namespaceSubmission,
		strings.ToLower(strings.TrimSpace(s.Email)),
		s.FullName,
		idempotency.Field(s.Message),
	)
}

var ErrMalformedEnvelope = errors.New("malformed event envelope")

// Decode parses a broker message body.
func Decode(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" || len(env.Payload) == 0 || string(env.Payload) == "null" {
		return Envelope{}, fmt.Errorf("%w: missing type or payload", ErrMalformedEnvelope)
	}
	return env, nil
}

// DecodePayload unmarshals the payload into v.
func (e Envelope) DecodePayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedEnvelope, e.Type, err)
	}
	return nil
}
