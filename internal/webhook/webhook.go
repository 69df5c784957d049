package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// Event names
const (
	EventJobCompleted = "job.completed"
	EventJobFailed    = "job.failed"
)

// Event is the callback payload
type Event struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Notifier delivers job callbacks
type Notifier struct {
	client      *http.Client
	secret      string
	maxAttempts int
	retryDelay  time.Duration
	logger      zerolog.Logger
}

// NewNotifier creates a new webhook notifier
func NewNotifier(cfg config.WebhookConfig, logger zerolog.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Notifier{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		secret:      cfg.Secret,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      logger.With().Str("component", "webhook").Logger(),
	}
}

// ValidateURL checks that a callback URL is an absolute http(s) URL
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid callback_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid callback_url: %q is not an http(s) URL", raw)
	}
	return nil
}

// EventFor returns the event name for a finished job
func EventFor(job *models.TransformJob) string {
	if job.Status == models.JobStatusFailed {
		return EventJobFailed
	}
	return EventJobCompleted
}

// NotifyJob posts the finished job to its callback URL. Jobs without a
// callback URL are skipped.
func (n *Notifier) NotifyJob(ctx context.Context, job *models.TransformJob) error {
	if job.CallbackURL == "" {
		return nil
	}

	event := EventFor(job)
	payload, err := json.Marshal(Event{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      job,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	deliveryID := uuid.New().String()
	var lastErr error
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		if attempt > 1 {
			// Exponential backoff between attempts
			delay := n.retryDelay * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = n.deliver(ctx, job.CallbackURL, event, deliveryID, payload)
		if lastErr == nil {
			metrics.RecordWebhookDelivery(event, true)
			n.logger.Info().
				Str("job_id", job.ID).
				Str("event", event).
				Int("attempt", attempt).
				Msg("Webhook delivered")
			return nil
		}
		n.logger.Warn().
			Err(lastErr).
			Str("job_id", job.ID).
			Int("attempt", attempt).
			Msg("Webhook delivery failed")
	}

	metrics.RecordWebhookDelivery(event, false)
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", n.maxAttempts, lastErr)
}

// deliver attempts one delivery
func (n *Notifier) deliver(ctx context.Context, target, event, deliveryID string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "AIVA-Webhook/1.0")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Delivery", deliveryID)

	// Add HMAC signature if secret is configured
	if n.secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(payload, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("callback returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// Sign generates the HMAC-SHA256 signature for a webhook payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
