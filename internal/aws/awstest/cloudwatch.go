package awstest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
)

// CloudWatch records PutMetricData calls.
type CloudWatch struct {
	mu    sync.Mutex
	calls []*cloudwatch.PutMetricDataInput
	Err   error
}

func (c *CloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	c.calls = append(c.calls, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// Calls returns recorded inputs.
func (c *CloudWatch) Calls() []*cloudwatch.PutMetricDataInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*cloudwatch.PutMetricDataInput(nil), c.calls...)
}
