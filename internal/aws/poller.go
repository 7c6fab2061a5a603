package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MessageHandler processes one received message. A nil return deletes the
// message; an error leaves it on the queue for redelivery.
type MessageHandler func(ctx context.Context, msg sqstypes.Message) error

// Poller long-polls a queue and hands messages to a MessageHandler. It is the
// local counterpart of the SQS Lambda trigger.
type Poller struct {
	SQS         SQSAPI
	QueueURL    string
	MaxMessages int32
	WaitSeconds int32
	Concurrency int
	Backoff     time.Duration
	Log         zerolog.Logger
}

// NewPoller returns a Poller with SQS's maximum batch and long-poll wait.
func NewPoller(client SQSAPI, queueURL string, concurrency int, log zerolog.Logger) *Poller {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Poller{
		SQS:         client,
		QueueURL:    queueURL,
		MaxMessages: 10,
		WaitSeconds: 20,
		Concurrency: concurrency,
		Backoff:     2 * time.Second,
		Log:         log.With().Str("queue_url", queueURL).Logger(),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, handle MessageHandler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := p.PollOnce(ctx, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.Log.Warn().Err(err).Msg("receive failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.Backoff):
			}
		}
	}
}

// PollOnce receives one batch, processes it with bounded parallelism and
// deletes every message whose handler succeeded. It returns the number of
// messages deleted.
func (p *Poller) PollOnce(ctx context.Context, handle MessageHandler) (int, error) {
	out, err := p.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              awsString(p.QueueURL),
		MaxNumberOfMessages:   p.MaxMessages,
		WaitTimeSeconds:       p.WaitSeconds,
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return 0, fmt.Errorf("receive message: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(p.Concurrency)
	deleted := make([]bool, len(out.Messages))
	for i, msg := range out.Messages {
		i, msg := i, msg // per-iteration copies (Go <1.22 loop variable semantics)
		g.Go(func() error {
			msgID := deref(msg.MessageId)
			if err := handle(ctx, msg); err != nil {
				p.Log.Error().Err(err).Str("message_id", msgID).Msg("handler failed, leaving message for redelivery")
				return nil
			}
			if _, err := p.SQS.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      awsString(p.QueueURL),
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				p.Log.Warn().Err(err).Str("message_id", msgID).Msg("delete failed, message will be redelivered")
				return nil
			}
			deleted[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range deleted {
		if ok {
			n++
		}
	}
	return n, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
