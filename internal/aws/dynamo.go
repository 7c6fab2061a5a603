package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// PutIfAbsent writes item only when no item with the same partition key exists.
// Returns (true, nil) when the item was inserted and (false, nil) when the key
// was already taken. The table's uniqueness is the only arbiter; there is no read.
func PutIfAbsent(ctx context.Context, client DynamoDBAPI, table, pkAttr string, item map[string]types.AttributeValue) (bool, error) {
	cond := fmt.Sprintf("attribute_not_exists(%s)", pkAttr)
	_, err := client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &table,
		Item:                item,
		ConditionExpression: &cond,
	})
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

// GetByKey fetches an item by its string partition key with a strongly
// consistent read. Returns (nil, nil) if not found.
func GetByKey(ctx context.Context, client DynamoDBAPI, table, pkAttr, pk string) (map[string]types.AttributeValue, error) {
	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &table,
		Key: map[string]types.AttributeValue{
			pkAttr: &types.AttributeValueMemberS{Value: pk},
		},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

// IsConditionalCheckFailed reports whether err is DynamoDB's conditional write rejection.
func IsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var api smithy.APIError
	return errors.As(err, &api) && api.ErrorCode() == "ConditionalCheckFailedException"
}

func awsBool(b bool) *bool { return &b }
