package submissions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/apperr"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws/awstest"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/events"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/idempotency"
)

const queue = "http://localhost:4566/000000000000/submissions.fifo"

func newService() (*Service, *awstest.Dynamo, *awstest.SQS) {
	db := awstest.NewDynamo(map[string]string{"idempotency": "idempotency_key"})
	q := awstest.NewSQS()
	pub := events.NewPublisher(idempotency.NewStore(db, "idempotency", time.Hour), aws.NewPublisher(q))
	return NewService(pub, queue), db, q
}

func strPtr(s string) *string { return &s }

func TestSubmit_QueuedThenDuplicateIgnored(t *testing.T) {
	svc, _, q := newService()
	ctx := context.Background()
	in := Input{Email: "a@x.com", FullName: "A", Message: strPtr("hi")}

	res, err := svc.Submit(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, events.Queued, res.Outcome)

	res, err = svc.Submit(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, events.DuplicateIgnored, res.Outcome)

	require.Len(t, q.Sent(queue), 1)
}

func TestSubmit_NormalizedDuplicates(t *testing.T) {
	svc, _, q := newService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, Input{Email: "a@x.com", FullName: "A"})
	require.NoError(t, err)
	res, err := svc.Submit(ctx, Input{Email: "A@X.COM", FullName: "A", Message: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, events.DuplicateIgnored, res.Outcome)
	assert.Len(t, q.Sent(queue), 1)
}

func TestSubmit_LedgerDownSendsNothing(t *testing.T) {
	svc, db, q := newService()
	db.PutErr = errors.New("unreachable")

	_, err := svc.Submit(context.Background(), Input{Email: "a@x.com", FullName: "A"})
	assert.True(t, apperr.Is(err, apperr.KindTransient))
	assert.Empty(t, q.Sent(queue))
}

func TestSubmit_GapStillQueued(t *testing.T) {
	svc, _, q := newService()
	q.SendErr = errors.New("throttled")

	res, err := svc.Submit(context.Background(), Input{Email: "a@x.com", FullName: "A"})
	require.NoError(t, err)
	assert.Equal(t, events.Queued, res.Outcome)
	require.NotNil(t, res.Gap)
	assert.True(t, apperr.Is(res.Gap, apperr.KindTransient))
}

func TestSubmit_Validation(t *testing.T) {
	svc, db, _ := newService()

	_, err := svc.Submit(context.Background(), Input{Email: " ", FullName: "A"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 0, db.PutCalls)
}
