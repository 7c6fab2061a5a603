package accounts

import "time"

// Account sources
const (
	SourceRegistration = "registration"
	SourceEvent        = "event"
)

// ExternalCredential is the credential_hash written by the event consumer.
// It is not a bcrypt hash, so no password ever matches it.
const ExternalCredential = "<external>"

// Account represents the item stored in the users DynamoDB table. The
// registration path and the event consumer both write this shape; they differ
// only in credential_hash and source.
type Account struct {
	Username       string     `dynamodbav:"username"` // PK
	CredentialHash string     `dynamodbav:"credential_hash"`
	Role           string     `dynamodbav:"role"`   // ADMIN | INSTRUCTOR | STUDENT
	Source         string     `dynamodbav:"source"` // registration | event
	CreatedAt      time.Time  `dynamodbav:"created_at"`
	UpdatedAt      *time.Time `dynamodbav:"updated_at,omitempty"`
}

// External reports whether the account was materialized from an event and
// has never had a real credential set.
func (a Account) External() bool {
	return a.CredentialHash == ExternalCredential
}

// CreateResult is the typed outcome of a conditional insert.
type CreateResult int

const (
	Created CreateResult = iota + 1
	Conflict
)

func (r CreateResult) String() string {
	switch r {
	case Created:
		return "created"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}
