package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricEmitter pushes operator-facing counters to CloudWatch. Lambda
// functions cannot be scraped, so events that need an alarm go here.
type MetricEmitter struct {
	CW        CloudWatchAPI
	Namespace string
	nowFunc   func() time.Time
}

// NewMetricEmitter returns an emitter writing into namespace.
func NewMetricEmitter(client CloudWatchAPI, namespace string) *MetricEmitter {
	return &MetricEmitter{CW: client, Namespace: namespace, nowFunc: time.Now}
}

// PublishGap records one reservation whose broker send failed.
func (e *MetricEmitter) PublishGap(ctx context.Context, eventType string) error {
	_, err := e.CW.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: awsString(e.Namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString("PublishGap"),
				Dimensions: []cwtypes.Dimension{
					{Name: awsString("EventType"), Value: awsString(eventType)},
				},
				Timestamp: timePtr(e.nowFunc()),
				Unit:      cwtypes.StandardUnitCount,
				Value:     float64Ptr(1),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }

func float64Ptr(f float64) *float64 { return &f }
