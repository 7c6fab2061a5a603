package aws

import (
	"context"
	"testing"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws/awstest"
)

func TestMetricEmitterPublishGap(t *testing.T) {
	cw := &awstest.CloudWatch{}
	e := NewMetricEmitter(cw, "EventFlow")

	if err := e.PublishGap(context.Background(), "user.registered"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := cw.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %d", len(calls))
	}
	datum := calls[0].MetricData[0]
	if *calls[0].Namespace != "EventFlow" || *datum.MetricName != "PublishGap" || *datum.Value != 1 {
		t.Fatalf("unexpected datum: %+v", datum)
	}
	if *datum.Dimensions[0].Value != "user.registered" {
		t.Fatalf("unexpected dimension: %+v", datum.Dimensions)
	}
}
