package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/apperr"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws"
)

const contactKeyAttr = "submission_id"

// Contact is a materialized submission in the contacts table.
type Contact struct {
	SubmissionID  string    `dynamodbav:"submission_id"` // PK, content fingerprint
	FullName      string    `dynamodbav:"full_name"`
	Email         string    `dynamodbav:"email"`
	Message       string    `dynamodbav:"message,omitempty"`
	CorrelationID string    `dynamodbav:"correlation_id,omitempty"`
	ReceivedAt    time.Time `dynamodbav:"received_at"`
}

// ContactStore writes submissions into the contacts table.
type ContactStore struct {
	client    aws.DynamoDBAPI
	tableName string
	timeout   time.Duration
}

func NewContactStore(client aws.DynamoDBAPI, tableName string, timeout time.Duration) *ContactStore {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ContactStore{client: client, tableName: tableName, timeout: timeout}
}

// Exists reports whether a contact with id is already stored.
func (s *ContactStore) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	item, err := aws.GetByKey(ctx, s.client, s.tableName, contactKeyAttr, id)
	if err != nil {
		return false, apperr.Transient("contacts.get", err)
	}
	return item != nil, nil
}

// Insert stores c unless its id is taken. Returns false on conflict.
func (s *ContactStore) Insert(ctx context.Context, c Contact) (bool, error) {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return false, fmt.Errorf("marshal contact: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := aws.PutIfAbsent(ctx, s.client, s.tableName, contactKeyAttr, item)
	if err != nil {
		return false, apperr.Transient("contacts.insert", err)
	}
	return created, nil
}
