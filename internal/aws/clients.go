package aws

import (
	"context"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// AWSClients holds the ledger/primary store, broker and gap-metric clients
// shared by the API and the worker.
type AWSClients struct {
	DynamoDB   DynamoDBAPI
	SQS        SQSAPI
	CloudWatch CloudWatchAPI
}

// NewAWSClients builds every client from one resolved config.
func NewAWSClients(ctx context.Context, s Settings) (*AWSClients, error) {
	cfg, err := LoadAWSConfig(ctx, s)
	if err != nil {
		return nil, err
	}
	return newClients(cfg), nil
}

func newClients(cfg sdkaws.Config) *AWSClients {
	return &AWSClients{
		DynamoDB:   dynamodb.NewFromConfig(cfg),
		SQS:        sqs.NewFromConfig(cfg),
		CloudWatch: cloudwatch.NewFromConfig(cfg),
	}
}
