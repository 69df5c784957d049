package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/therealutkarshpriyadarshi/aiva/internal/jobs"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/internal/storage"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// Transformer applies an action to a file
type Transformer interface {
	Apply(ctx context.Context, req models.TransformRequest) models.TransformResult
}

// Archiver uploads derived outputs to object storage
type Archiver interface {
	UploadFile(ctx context.Context, objectName, filePath string, metadata map[string]string) error
	GetURL(ctx context.Context, objectName string) (string, error)
}

// Notifier reports finished jobs to their callback URL
type Notifier interface {
	NotifyJob(ctx context.Context, job *models.TransformJob) error
}

// JobStore tracks job state across workers
type JobStore interface {
	Get(ctx context.Context, id string) (*models.TransformJob, error)
	AcquireLock(ctx context.Context, id string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, id string) error
	MarkProcessing(ctx context.Context, job *models.TransformJob, workerID string) error
	Finish(ctx context.Context, job *models.TransformJob, result models.TransformResult) error
	SetObject(ctx context.Context, job *models.TransformJob, key, url string) error
}

// processor runs queued transform jobs
type processor struct {
	store       JobStore
	transformer Transformer
	archiver    Archiver
	notifier    Notifier
	workerID    string
	lockTTL     time.Duration
	logger      zerolog.Logger

	inProgress atomic.Int64
}

func newProcessor(store JobStore, transformer Transformer, archiver Archiver, notifier Notifier, workerID string, logger zerolog.Logger) *processor {
	return &processor{
		store:       store,
		transformer: transformer,
		archiver:    archiver,
		notifier:    notifier,
		workerID:    workerID,
		lockTTL:     30 * time.Minute,
		logger:      logger.With().Str("component", "worker").Str("worker_id", workerID).Logger(),
	}
}

// InFlight returns the number of jobs being processed
func (p *processor) InFlight() int {
	return int(p.inProgress.Load())
}

// handle processes one delivery. A returned error sends the job to the
// retry queue; transform failures are recorded on the job and not retried.
func (p *processor) handle(ctx context.Context, msg *models.TransformJob, retries int) error {
	log := p.logger.With().Str("job_id", msg.ID).Str("action", msg.Request.Action).Int("retry", retries).Logger()

	acquired, err := p.store.AcquireLock(ctx, msg.ID, p.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to lock job: %w", err)
	}
	if !acquired {
		log.Info().Msg("Job is locked by another worker, skipping")
		return nil
	}
	defer func() {
		if err := p.store.ReleaseLock(context.WithoutCancel(ctx), msg.ID); err != nil {
			log.Warn().Err(err).Msg("Failed to release job lock")
		}
	}()

	job, err := p.store.Get(ctx, msg.ID)
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		// Record expired; the message still carries the request
		job = msg
	case err != nil:
		return fmt.Errorf("failed to load job: %w", err)
	case job.IsTerminal():
		log.Info().Str("status", job.Status).Msg("Job already finished, skipping")
		return nil
	}

	if err := p.store.MarkProcessing(ctx, job, p.workerID); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}
	metrics.UpdateJobsInProgress(int(p.inProgress.Add(1)))
	defer func() {
		metrics.UpdateJobsInProgress(int(p.inProgress.Add(-1)))
	}()

	if !job.CreatedAt.IsZero() && job.StartedAt != nil {
		metrics.RecordJobQueueTime(job.StartedAt.Sub(job.CreatedAt).Seconds())
	}
	log.Info().Str("file_path", job.Request.InputPath).Msg("Processing job")

	// Finish the transform even when shutdown starts mid-job
	workCtx := context.WithoutCancel(ctx)
	result := p.transformer.Apply(workCtx, job.Request)

	if result.Succeeded() && result.OutputPath != "" && p.archiver != nil {
		p.archive(workCtx, job, result.OutputPath, log)
	}

	if err := p.store.Finish(workCtx, job, result); err != nil {
		return fmt.Errorf("failed to record job result: %w", err)
	}
	metrics.RecordJobCompleted(job.Status)

	if p.notifier != nil {
		if err := p.notifier.NotifyJob(workCtx, job); err != nil {
			log.Warn().Err(err).Str("callback_url", job.CallbackURL).Msg("Job callback failed")
		}
	}

	log.Info().
		Str("status", job.Status).
		Str("output_file", result.OutputPath).
		Str("message", result.Message).
		Msg("Job finished")
	return nil
}

// archive uploads the derived output. Failures leave the local output in
// place and do not fail the job.
func (p *processor) archive(ctx context.Context, job *models.TransformJob, output string, log zerolog.Logger) {
	key := storage.ObjectKey(job.ID, output)
	metadata := map[string]string{
		"job-id": job.ID,
		"action": job.Request.Action,
	}
	if err := p.archiver.UploadFile(ctx, key, output, metadata); err != nil {
		log.Warn().Err(err).Str("object_key", key).Msg("Failed to archive output")
		return
	}

	url, err := p.archiver.GetURL(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("object_key", key).Msg("Failed to presign archived output")
	}
	if err := p.store.SetObject(ctx, job, key, url); err != nil {
		log.Warn().Err(err).Msg("Failed to record archived output")
	}
}
