package queue

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

func TestNewPublishing(t *testing.T) {
	job := &models.TransformJob{
		ID:       "job-1",
		Priority: 42,
		Request:  models.TransformRequest{Action: models.ActionSuperScale, InputPath: "/data/a.mp4"},
	}

	msg, err := newPublishing(job, 2)
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, uint8(MaxPriority), msg.Priority)
	assert.Equal(t, 2, retryCount(msg.Headers))

	decoded, err := decodeJob(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, job.Request, decoded.Request)
}

func TestDecodeJobRejectsGarbage(t *testing.T) {
	_, err := decodeJob([]byte("{"))
	assert.Error(t, err)

	_, err = decodeJob([]byte(`{"status":"queued"}`))
	assert.Error(t, err)
}

func TestRetryCount(t *testing.T) {
	tests := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{"missing", nil, 0},
		{"int32", amqp.Table{"x-retry-count": int32(3)}, 3},
		{"int64", amqp.Table{"x-retry-count": int64(1)}, 1},
		{"int", amqp.Table{"x-retry-count": 2}, 2},
		{"wrong type", amqp.Table{"x-retry-count": "2"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryCount(tt.headers))
		})
	}
}

func TestClampPriority(t *testing.T) {
	assert.Equal(t, uint8(0), clampPriority(-5))
	assert.Equal(t, uint8(5), clampPriority(models.JobPriorityNormal))
	assert.Equal(t, uint8(10), clampPriority(99))
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, 10*time.Second, BackoffDelay(0))
	assert.Equal(t, 20*time.Second, BackoffDelay(1))
	assert.Equal(t, 40*time.Second, BackoffDelay(2))
	assert.Equal(t, 5*time.Minute, BackoffDelay(8))
	assert.Equal(t, 5*time.Minute, BackoffDelay(100))
	assert.Equal(t, 10*time.Second, BackoffDelay(-1))
}
