package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Message is a single broker send. QueueURL plays the role of the topic.
type Message struct {
	QueueURL string
	Body     string
	// GroupID keeps per-key ordering on FIFO queues. Ignored on standard queues.
	GroupID string
	// DeduplicationID lets FIFO queues drop resends inside their dedup window.
	DeduplicationID string
	Attributes      map[string]string
}

// Publisher wraps an SQS client.
type Publisher struct {
	SQS SQSAPI
}

// NewPublisher returns a Publisher backed by sqsClient.
func NewPublisher(sqsClient SQSAPI) *Publisher {
	return &Publisher{SQS: sqsClient}
}

// Send delivers msg to its queue. Attributes are sent as String message attributes.
func (p *Publisher) Send(ctx context.Context, msg Message) error {
	if msg.QueueURL == "" {
		return fmt.Errorf("send message: empty queue url")
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    awsString(msg.QueueURL),
		MessageBody: awsString(msg.Body),
	}
	if IsFIFO(msg.QueueURL) {
		if msg.GroupID != "" {
			input.MessageGroupId = awsString(msg.GroupID)
		}
		if msg.DeduplicationID != "" {
			input.MessageDeduplicationId = awsString(msg.DeduplicationID)
		}
	}
	if len(msg.Attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range msg.Attributes {
			if v == "" {
				// SQS rejects empty attribute values
				continue
			}
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: awsString(v),
			}
		}
		input.MessageAttributes = msgAttrs
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// IsFIFO reports whether queueURL names a FIFO queue.
func IsFIFO(queueURL string) bool {
	return strings.HasSuffix(queueURL, ".fifo")
}

// awsString helper
func awsString(s string) *string { return &s }
