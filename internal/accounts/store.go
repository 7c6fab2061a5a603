package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/apperr"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws"
)

const keyAttr = "username"

// ErrNotFound is returned when an update targets a missing account.
var ErrNotFound = errors.New("account not found")

// Store encapsulates operations on the users table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	timeout   time.Duration
	nowFunc   func() time.Time
}

// NewStore creates a new accounts Store. timeout bounds every call.
func NewStore(client aws.DynamoDBAPI, tableName string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Store{
		client:    client,
		tableName: tableName,
		timeout:   timeout,
		nowFunc:   time.Now,
	}
}

// Get fetches an account by username. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, username string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	item, err := aws.GetByKey(ctx, s.client, s.tableName, keyAttr, username)
	if err != nil {
		return nil, apperr.Transient("accounts.get", err)
	}
	if item == nil {
		return nil, nil
	}
	var a Account
	if err := attributevalue.UnmarshalMap(item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return &a, nil
}

// Create inserts a only if no account with the same username exists. The
// table's conditional write decides the winner between concurrent writers.
func (s *Store) Create(ctx context.Context, a Account) (CreateResult, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.nowFunc().UTC()
	}
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return 0, fmt.Errorf("marshal account: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := aws.PutIfAbsent(ctx, s.client, s.tableName, keyAttr, item)
	if err != nil {
		return 0, apperr.Transient("accounts.create", err)
	}
	if !created {
		return Conflict, nil
	}
	return Created, nil
}

// List returns every account, following scan pagination.
func (s *Store) List(ctx context.Context) ([]Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		out   []Account
		start map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, apperr.Transient("accounts.list", err)
		}
		var batch []Account
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal accounts: %w", err)
		}
		out = append(out, batch...)
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = page.LastEvaluatedKey
	}
}

// UpdateCredential replaces the credential hash of an existing account.
// Returns ErrNotFound if the account does not exist.
func (s *Store) UpdateCredential(ctx context.Context, username, hash string) error {
	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			keyAttr: &types.AttributeValueMemberS{Value: username},
		},
		UpdateExpression: awsString("SET credential_hash = :h, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h":  &types.AttributeValueMemberS{Value: hash},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("attribute_exists(username)"),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		if aws.IsConditionalCheckFailed(err) {
			return ErrNotFound
		}
		return apperr.Transient("accounts.update_credential", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
