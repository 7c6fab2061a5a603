package awstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQS records sends and serves them back through ReceiveMessage.
type SQS struct {
	mu       sync.Mutex
	seq      int
	sent     []*sqs.SendMessageInput
	pending  map[string][]sqstypes.Message
	inflight map[string]sqstypes.Message
	deleted  []string

	SendErr    error
	ReceiveErr error
	DeleteErr  error
}

func NewSQS() *SQS {
	return &SQS{
		pending:  map[string][]sqstypes.Message{},
		inflight: map[string]sqstypes.Message{},
	}
}

// Sent returns every successful send to queueURL, in order.
func (q *SQS) Sent(queueURL string) []*sqs.SendMessageInput {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*sqs.SendMessageInput
	for _, in := range q.sent {
		if *in.QueueUrl == queueURL {
			out = append(out, in)
		}
	}
	return out
}

// Deleted returns receipt handles of deleted messages.
func (q *SQS) Deleted() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deleted...)
}

func (q *SQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.SendErr != nil {
		return nil, q.SendErr
	}
	q.seq++
	id := fmt.Sprintf("msg-%d", q.seq)
	q.sent = append(q.sent, params)
	q.pending[*params.QueueUrl] = append(q.pending[*params.QueueUrl], sqstypes.Message{
		MessageId:         strPtr(id),
		ReceiptHandle:     strPtr("rh-" + id),
		Body:              params.MessageBody,
		MessageAttributes: params.MessageAttributes,
	})
	return &sqs.SendMessageOutput{MessageId: strPtr(id)}, nil
}

func (q *SQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.ReceiveErr != nil {
		return nil, q.ReceiveErr
	}
	url := *params.QueueUrl
	n := int(params.MaxNumberOfMessages)
	if n <= 0 || n > len(q.pending[url]) {
		n = len(q.pending[url])
	}
	batch := q.pending[url][:n]
	q.pending[url] = q.pending[url][n:]
	for _, m := range batch {
		q.inflight[*m.ReceiptHandle] = m
	}
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (q *SQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.DeleteErr != nil {
		return nil, q.DeleteErr
	}
	delete(q.inflight, *params.ReceiptHandle)
	q.deleted = append(q.deleted, *params.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}
