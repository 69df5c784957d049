package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// ErrJobNotFound is returned when a job id is unknown or expired
var ErrJobNotFound = errors.New("job not found")

// DefaultTTL is how long job records are kept when not configured
const DefaultTTL = 24 * time.Hour

// Store keeps transform job status in Redis
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore connects to Redis and verifies the connection
func NewStore(cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.JobTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func jobKey(id string) string {
	return fmt.Sprintf("job:%s", id)
}

func lockKey(id string) string {
	return fmt.Sprintf("lock:job:%s", id)
}

// Create stores a new queued job for req. callbackURL may be empty.
func (s *Store) Create(ctx context.Context, req models.TransformRequest, priority int, callbackURL string) (*models.TransformJob, error) {
	now := time.Now().UTC()
	job := &models.TransformJob{
		ID:          uuid.New().String(),
		Request:     req,
		Status:      models.JobStatusQueued,
		Priority:    priority,
		CallbackURL: callbackURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Save(ctx, job); err != nil {
		return nil, err
	}
	if err := s.client.Incr(ctx, "stats:jobs_created").Err(); err != nil {
		return nil, fmt.Errorf("failed to update stats: %w", err)
	}
	return job, nil
}

// Save writes job and refreshes its TTL
func (s *Store) Save(ctx context.Context, job *models.TransformJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return s.client.Set(ctx, jobKey(job.ID), data, s.ttl).Err()
}

// Get returns the job with id or ErrJobNotFound
func (s *Store) Get(ctx context.Context, id string) (*models.TransformJob, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheAccess("job", false)
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	metrics.RecordCacheAccess("job", true)

	var job models.TransformJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// MarkProcessing records that workerID picked up job
func (s *Store) MarkProcessing(ctx context.Context, job *models.TransformJob, workerID string) error {
	now := time.Now().UTC()
	job.Status = models.JobStatusProcessing
	job.WorkerID = workerID
	job.StartedAt = &now
	job.UpdatedAt = now
	return s.Save(ctx, job)
}

// Finish records the transform result. An error result marks the job failed.
func (s *Store) Finish(ctx context.Context, job *models.TransformJob, result models.TransformResult) error {
	now := time.Now().UTC()
	job.Result = &result
	job.Status = models.JobStatusCompleted
	job.ErrorMsg = ""
	if !result.Succeeded() {
		job.Status = models.JobStatusFailed
		job.ErrorMsg = result.Message
	}
	job.CompletedAt = &now
	job.UpdatedAt = now
	if err := s.Save(ctx, job); err != nil {
		return err
	}
	return s.client.Incr(ctx, "stats:jobs_"+job.Status).Err()
}

// SetObject attaches the archived output location to job
func (s *Store) SetObject(ctx context.Context, job *models.TransformJob, key, url string) error {
	job.ObjectKey = key
	job.ObjectURL = url
	job.UpdatedAt = time.Now().UTC()
	return s.Save(ctx, job)
}

// Stat returns a job counter such as "jobs_completed"
func (s *Store) Stat(ctx context.Context, name string) (int64, error) {
	v, err := s.client.Get(ctx, "stats:"+name).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// AcquireLock claims job id for one worker. A redelivered message for a
// job that is already being processed fails to acquire the lock.
func (s *Store) AcquireLock(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, lockKey(id), "locked", ttl).Result()
}

// ReleaseLock releases a job lock
func (s *Store) ReleaseLock(ctx context.Context, id string) error {
	return s.client.Del(ctx, lockKey(id)).Err()
}
