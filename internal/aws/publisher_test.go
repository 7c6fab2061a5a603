package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws/awstest"
)

func TestPublisherSend_StandardQueue(t *testing.T) {
	q := awstest.NewSQS()
	p := NewPublisher(q)

	err := p.Send(context.Background(), Message{
		QueueURL:        "http://localhost:4566/000000000000/submissions",
		Body:            `{"type":"submission.received"}`,
		GroupID:         "a@x.com",
		DeduplicationID: "k1",
		Attributes:      map[string]string{"event_type": "submission.received", "correlation_id": ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := q.Sent("http://localhost:4566/000000000000/submissions")
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if sent[0].MessageGroupId != nil || sent[0].MessageDeduplicationId != nil {
		t.Fatalf("fifo attributes must not be set on a standard queue")
	}
	if _, ok := sent[0].MessageAttributes["correlation_id"]; ok {
		t.Fatalf("empty attribute should have been dropped")
	}
	if got := *sent[0].MessageAttributes["event_type"].StringValue; got != "submission.received" {
		t.Fatalf("unexpected event_type attribute %q", got)
	}
}

func TestPublisherSend_FIFOQueue(t *testing.T) {
	q := awstest.NewSQS()
	p := NewPublisher(q)
	url := "http://localhost:4566/000000000000/users.fifo"

	if err := p.Send(context.Background(), Message{QueueURL: url, Body: "{}", GroupID: "alice", DeduplicationID: "k2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := q.Sent(url)
	if *sent[0].MessageGroupId != "alice" || *sent[0].MessageDeduplicationId != "k2" {
		t.Fatalf("fifo attributes not propagated: %+v", sent[0])
	}
}

func TestPublisherSend_Errors(t *testing.T) {
	q := awstest.NewSQS()
	p := NewPublisher(q)

	if err := p.Send(context.Background(), Message{Body: "{}"}); err == nil {
		t.Fatalf("expected error for empty queue url")
	}

	boom := errors.New("throttled")
	q.SendErr = boom
	err := p.Send(context.Background(), Message{QueueURL: "q", Body: "{}"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}
