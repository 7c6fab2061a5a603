package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/consumer"
)

// Processor adapts SQS deliveries, from the Lambda trigger or the local
// poller, to the consumer.
type Processor struct {
	consumer *consumer.Consumer
}

// NewProcessor creates a new worker processor.
func NewProcessor(c *consumer.Consumer) *Processor {
	return &Processor{consumer: c}
}

// Handle processes an SQS batch and reports only the failed records, so
// successful ones are not redelivered. Requires ReportBatchItemFailures on
// the event source mapping.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		logger := zerolog.Ctx(ctx).With().Str("message_id", rec.MessageId).Logger()
		if _, err := p.consumer.HandleMessage(logger.WithContext(ctx), []byte(rec.Body)); err != nil {
			logger.Error().Err(err).Msg("worker error")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

// HandleMessage processes one message received by the local poller.
func (p *Processor) HandleMessage(ctx context.Context, msg sqstypes.Message) error {
	var body string
	if msg.Body != nil {
		body = *msg.Body
	}
	var id string
	if msg.MessageId != nil {
		id = *msg.MessageId
	}
	logger := zerolog.Ctx(ctx).With().Str("message_id", id).Logger()
	_, err := p.consumer.HandleMessage(logger.WithContext(ctx), []byte(body))
	return err
}
