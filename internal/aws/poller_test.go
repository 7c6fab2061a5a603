package aws

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws/awstest"
)

func TestPollerPollOnce_DeletesOnlySuccessfulMessages(t *testing.T) {
	q := awstest.NewSQS()
	pub := NewPublisher(q)
	url := "http://localhost:4566/000000000000/users"
	for _, body := range []string{"ok-1", "fail", "ok-2"} {
		if err := pub.Send(context.Background(), Message{QueueURL: url, Body: body}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	p := NewPoller(q, url, 2, zerolog.Nop())
	var seen atomic.Int32
	n, err := p.PollOnce(context.Background(), func(ctx context.Context, msg sqstypes.Message) error {
		seen.Add(1)
		if *msg.Body == "fail" {
			return errors.New("handler failed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.Load() != 3 {
		t.Fatalf("expected 3 messages handled, got %d", seen.Load())
	}
	if n != 2 {
		t.Fatalf("expected 2 deletions, got %d", n)
	}
	if len(q.Deleted()) != 2 {
		t.Fatalf("expected 2 deleted receipts, got %v", q.Deleted())
	}
}

func TestPollerPollOnce_ReceiveError(t *testing.T) {
	q := awstest.NewSQS()
	q.ReceiveErr = errors.New("unreachable")
	p := NewPoller(q, "q", 1, zerolog.Nop())
	if _, err := p.PollOnce(context.Background(), func(context.Context, sqstypes.Message) error { return nil }); err == nil {
		t.Fatalf("expected receive error")
	}
}

func TestPollerRun_StopsOnCancel(t *testing.T) {
	q := awstest.NewSQS()
	p := NewPoller(q, "q", 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx, func(context.Context, sqstypes.Message) error { return nil }); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}
