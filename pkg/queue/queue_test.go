package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/pkg/logger"
)

type countingJob struct {
	calls int
	err   error
	got   []byte
}

func (j *countingJob) Name() string { return "counting" }
func (j *countingJob) Type() string { return "count" }
func (j *countingJob) Handle(_ context.Context, payload []byte) error {
	j.calls++
	j.got = payload
	return j.err
}

func newTestQueue(retries int) *RedisQueue {
	return NewRedisQueue(logger.Nop(), &QueueConfig{RetryLimit: retries}, nil)
}

func TestDefaults(t *testing.T) {
	q := newTestQueue(0)
	assert.Equal(t, 1, q.config.Workers)
	assert.Equal(t, 10*time.Second, q.config.RetryDelay)
	assert.Equal(t, "fincast:queue:messages", q.queueKey())
	assert.Equal(t, "fincast:queue:retry", q.retryKey())
	assert.Equal(t, "fincast:queue:dlq", q.deadLetterKey())
}

func TestDispatch(t *testing.T) {
	q := newTestQueue(2)
	job := &countingJob{}
	q.RegisterJob(job)
	q.RegisterJob(&countingJob{err: errors.New("shadowed")})

	msg, err := q.newMessage("count", map[string]int{"horizon": 7})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	assert.Equal(t, outcomeDone, q.dispatch(msg))
	assert.Equal(t, 1, job.calls)
	assert.JSONEq(t, `{"horizon":7}`, string(job.got))

	job.err = errors.New("upstream down")
	assert.Equal(t, outcomeRetry, q.dispatch(msg))
	msg.Attempts = 2
	assert.Equal(t, outcomeDead, q.dispatch(msg))

	assert.Equal(t, outcomeDead, q.dispatch(Message{ID: "x", Type: "unknown"}))
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	q := newTestQueue(0)
	_, err := q.Enqueue(context.Background(), "nope", struct{}{})
	assert.Error(t, err)
}

func TestParsePayload(t *testing.T) {
	type job struct {
		Symbol string `json:"symbol"`
	}
	j, err := ParsePayload[job]([]byte(`{"symbol":"AAPL"}`))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", j.Symbol)

	_, err = ParsePayload[job]([]byte(`{`))
	assert.Error(t, err)
}
