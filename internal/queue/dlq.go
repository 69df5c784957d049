package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

const (
	DeadLetterQueueName    = "transform_jobs_dlq"
	DeadLetterExchangeName = "aiva_dlq"
	RetryQueueName         = "transform_jobs_retry"
	MaxRetries             = 3
)

// SetupDeadLetterQueue sets up the dead letter and retry queues
func (q *Queue) SetupDeadLetterQueue() error {
	// Declare dead letter exchange
	err := q.channel.ExchangeDeclare(
		DeadLetterExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	// Declare dead letter queue
	_, err = q.channel.QueueDeclare(
		DeadLetterQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	// Bind DLQ to exchange
	err = q.channel.QueueBind(
		DeadLetterQueueName,
		DeadLetterQueueName,
		DeadLetterExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Expired retry messages flow back into the main queue
	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": TransformQueueName,
	}

	_, err = q.channel.QueueDeclare(
		RetryQueueName,
		true,
		false,
		false,
		false,
		retryArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare retry queue: %w", err)
	}

	return nil
}

// PublishToRetryQueue schedules job for another attempt after a backoff,
// or moves it to the dead letter queue once MaxRetries is reached
func (q *Queue) PublishToRetryQueue(ctx context.Context, job *models.TransformJob, retries int, reason string) error {
	if retries >= MaxRetries {
		return q.PublishToDeadLetterQueue(ctx, job, fmt.Sprintf("max retries exceeded: %s", reason))
	}

	msg, err := newPublishing(job, retries+1)
	if err != nil {
		return err
	}
	msg.Expiration = fmt.Sprintf("%d", BackoffDelay(retries).Milliseconds())

	err = q.channel.PublishWithContext(ctx,
		"",
		RetryQueueName,
		false,
		false,
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish to retry queue: %w", err)
	}
	return nil
}

// PublishToDeadLetterQueue publishes a failed job to the dead letter queue
func (q *Queue) PublishToDeadLetterQueue(ctx context.Context, job *models.TransformJob, reason string) error {
	msg, err := newPublishing(job, MaxRetries)
	if err != nil {
		return err
	}
	msg.Headers["x-failure-reason"] = reason
	msg.Headers["x-failed-at"] = time.Now().Format(time.RFC3339)

	err = q.channel.PublishWithContext(ctx,
		DeadLetterExchangeName,
		DeadLetterQueueName,
		false,
		false,
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}
	return nil
}

// GetDLQDepth returns the number of messages in the dead letter queue
func (q *Queue) GetDLQDepth() (int, error) {
	info, err := q.channel.QueueInspect(DeadLetterQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	return info.Messages, nil
}

// BackoffDelay returns the exponential retry delay: 10s, 20s, 40s, capped at 5 minutes
func BackoffDelay(retries int) time.Duration {
	if retries < 0 {
		retries = 0
	}
	if retries > 10 {
		return 5 * time.Minute
	}
	delay := 10 * time.Second * time.Duration(1<<retries)
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}
