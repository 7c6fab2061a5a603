package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/accounts"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws/awstest"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/consumer"
	flow "github.com/imrishuroy/go-idempotent-eventflow/internal/events"
)

func newTestProcessor() (*Processor, *awstest.Dynamo) {
	db := awstest.NewDynamo(map[string]string{
		"users":    "username",
		"contacts": "submission_id",
	})
	c := consumer.New(
		accounts.NewStore(db, "users", time.Second),
		consumer.NewContactStore(db, "contacts", time.Second),
	)
	return NewProcessor(c), db
}

func body(t *testing.T, typ string, payload any) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(flow.Envelope{Type: typ, IdempotencyKey: "k", Payload: raw})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestWorkerProcess_Success(t *testing.T) {
	p, db := newTestProcessor()

	registered := body(t, flow.TypeUserRegistered, flow.UserRegistered{Username: "ana", Role: "STUDENT"})
	ev := events.SQSEvent{
		Records: []events.SQSMessage{
			{MessageId: "m1", Body: registered},
			{MessageId: "m2", Body: registered}, // redelivery in the same batch
			{MessageId: "m3", Body: body(t, flow.TypeSubmissionReceived, flow.Submission{FullName: "A", Email: "a@x.com"})},
		},
	}

	resp, err := p.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("expected no failures, got %+v", resp.BatchItemFailures)
	}
	if db.Len("users") != 1 || db.Len("contacts") != 1 {
		t.Fatalf("expected one user and one contact, got %d and %d", db.Len("users"), db.Len("contacts"))
	}
}

func TestWorkerProcess_PartialBatchFailure(t *testing.T) {
	p, _ := newTestProcessor()

	ev := events.SQSEvent{
		Records: []events.SQSMessage{
			{MessageId: "good", Body: body(t, flow.TypeUserRegistered, flow.UserRegistered{Username: "ana", Role: "STUDENT"})},
			{MessageId: "garbage", Body: "{not json"},
			{MessageId: "unknown", Body: body(t, "order.created", map[string]string{"order_id": "o1"})},
		},
	}

	resp, err := p.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}
	if len(resp.BatchItemFailures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", resp.BatchItemFailures)
	}
	if resp.BatchItemFailures[0].ItemIdentifier != "garbage" || resp.BatchItemFailures[1].ItemIdentifier != "unknown" {
		t.Fatalf("unexpected failure ids: %+v", resp.BatchItemFailures)
	}
}

func TestWorkerProcess_LocalPoller(t *testing.T) {
	p, db := newTestProcessor()
	q := awstest.NewSQS()
	url := "http://localhost:4566/000000000000/users"
	good := body(t, flow.TypeUserRegistered, flow.UserRegistered{Username: "ana", Role: "STUDENT"})
	bad := "{"
	for _, b := range []*string{&good, &bad} {
		if _, err := q.SendMessage(context.Background(), &sqs.SendMessageInput{QueueUrl: &url, MessageBody: b}); err != nil {
			t.Fatal(err)
		}
	}

	poller := aws.NewPoller(q, url, 2, zerolog.Nop())
	deleted, err := poller.PollOnce(context.Background(), p.HandleMessage)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected only the good message deleted, got %d", deleted)
	}
	if db.Item("users", "ana") == nil {
		t.Fatal("expected account materialized")
	}
}
