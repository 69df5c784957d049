package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

const (
	TransformQueueName = "transform_jobs"
	ExchangeName       = "aiva"
	MaxPriority        = 10
)

// Handler processes one delivered job. retryCount is the number of
// earlier failed attempts.
type Handler func(ctx context.Context, job *models.TransformJob, retryCount int) error

// Queue provides message queue operations
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// New creates a new queue client
func New(cfg config.QueueConfig) (*Queue, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Declare exchange
	err = channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare queue
	_, err = channel.QueueDeclare(
		TransformQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-max-priority": int32(MaxPriority)},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind queue to exchange
	err = channel.QueueBind(
		TransformQueueName,
		TransformQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &Queue{
		conn:    conn,
		channel: channel,
	}, nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishJob publishes a transform job to the queue
func (q *Queue) PublishJob(ctx context.Context, job *models.TransformJob) error {
	msg, err := newPublishing(job, 0)
	if err != nil {
		return err
	}

	err = q.channel.PublishWithContext(ctx,
		ExchangeName,
		TransformQueueName,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	return nil
}

// ConsumeJobs starts consuming jobs from the queue. prefetch bounds the
// number of unacknowledged jobs this consumer holds and the number of
// jobs handled concurrently.
func (q *Queue) ConsumeJobs(ctx context.Context, prefetch int, handler Handler) error {
	if prefetch <= 0 {
		prefetch = 1
	}
	// Set QoS to limit concurrent processing
	err := q.channel.Qos(
		prefetch, // prefetch count
		0,        // prefetch size
		false,    // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		TransformQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	// One goroutine per prefetch slot so held deliveries run in parallel
	for i := 0; i < prefetch; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					q.handleDelivery(ctx, msg, handler)
				}
			}
		}()
	}

	return nil
}

func (q *Queue) handleDelivery(ctx context.Context, msg amqp.Delivery, handler Handler) {
	job, err := decodeJob(msg.Body)
	if err != nil {
		metrics.RecordError("queue", "decode")
		msg.Nack(false, false)
		return
	}

	retries := retryCount(msg.Headers)
	if err := handler(ctx, job, retries); err != nil {
		metrics.RecordError("queue", "handler")
		// Hand the job to the retry queue and drop this delivery
		if rerr := q.PublishToRetryQueue(ctx, job, retries, err.Error()); rerr != nil {
			metrics.RecordError("queue", "retry_publish")
			msg.Nack(false, true)
			return
		}
	}
	msg.Ack(false)
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(TransformQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}

func newPublishing(job *models.TransformJob, retries int) (amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal job: %w", err)
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
		Priority:     clampPriority(job.Priority),
		Headers:      amqp.Table{"x-retry-count": int32(retries)},
	}, nil
}

func decodeJob(body []byte) (*models.TransformJob, error) {
	var job models.TransformJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("job without id")
	}
	return &job, nil
}

func clampPriority(p int) uint8 {
	if p < 0 {
		return 0
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return uint8(p)
}

// retryCount reads the retry header, which arrives with a broker-dependent
// integer type
func retryCount(headers amqp.Table) int {
	switch v := headers["x-retry-count"].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	}
	return 0
}
