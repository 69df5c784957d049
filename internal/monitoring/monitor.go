package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/therealutkarshpriyadarshi/aiva/internal/jobs"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/internal/queue"
)

const (
	// StatusHealthy means no alert thresholds are crossed
	StatusHealthy = "healthy"
	// StatusWarning means the system is degraded but still processing
	StatusWarning = "warning"
	// StatusCritical means jobs are piling up or nobody is working them
	StatusCritical = "critical"
)

// Alert thresholds
const (
	maxDLQDepth     = 100
	maxQueueDepth   = 1000
	maxFailureRate  = 0.1
	staleHeartbeat  = 90 * time.Second
	defaultInterval = 10 * time.Second
)

// Metrics is a snapshot of the job pipeline
type Metrics struct {
	QueueDepth     int       `json:"queue_depth"`
	DLQDepth       int       `json:"dlq_depth"`
	ActiveJobs     int       `json:"active_jobs"`
	TotalJobs      int64     `json:"total_jobs"`
	CompletedJobs  int64     `json:"completed_jobs"`
	FailedJobs     int64     `json:"failed_jobs"`
	WorkerCount    int       `json:"worker_count"`
	HealthyWorkers int       `json:"healthy_workers"`
	LastUpdated    time.Time `json:"last_updated"`
}

// WorkerHealth is the health of one worker
type WorkerHealth struct {
	WorkerID      string    `json:"worker_id"`
	Status        string    `json:"status"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	JobsInFlight  int       `json:"jobs_in_flight"`
}

// JobStats reads job counters and worker heartbeats
type JobStats interface {
	Stat(ctx context.Context, name string) (int64, error)
	Workers(ctx context.Context) ([]jobs.WorkerStatus, error)
}

// QueueProvider reports queue depths
type QueueProvider interface {
	GetQueueDepth() (int, error)
	GetDLQDepth() (int, error)
}

// Monitor periodically collects pipeline metrics
type Monitor struct {
	stats    JobStats
	queue    QueueProvider
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	metrics Metrics
	workers []WorkerHealth
}

// NewMonitor creates a monitor; interval <= 0 uses 10 seconds
func NewMonitor(stats JobStats, queueProvider QueueProvider, interval time.Duration, logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Monitor{
		stats:    stats,
		queue:    queueProvider,
		interval: interval,
		logger:   logger.With().Str("component", "monitor").Logger(),
		now:      time.Now,
	}
}

// Start refreshes metrics until ctx is cancelled
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		if err := m.Refresh(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to update metrics")
		}

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Refresh(ctx); err != nil {
					m.logger.Warn().Err(err).Msg("Failed to update metrics")
				}
			}
		}
	}()
}

// Refresh collects a new snapshot and exports it as gauges
func (m *Monitor) Refresh(ctx context.Context) error {
	var snap Metrics

	queueDepth, err := m.queue.GetQueueDepth()
	if err != nil {
		return fmt.Errorf("failed to get queue depth: %w", err)
	}
	snap.QueueDepth = queueDepth

	dlqDepth, err := m.queue.GetDLQDepth()
	if err != nil {
		return fmt.Errorf("failed to get DLQ depth: %w", err)
	}
	snap.DLQDepth = dlqDepth

	if snap.TotalJobs, err = m.stats.Stat(ctx, "jobs_created"); err != nil {
		return fmt.Errorf("failed to get job stats: %w", err)
	}
	if snap.CompletedJobs, err = m.stats.Stat(ctx, "jobs_completed"); err != nil {
		return fmt.Errorf("failed to get job stats: %w", err)
	}
	if snap.FailedJobs, err = m.stats.Stat(ctx, "jobs_failed"); err != nil {
		return fmt.Errorf("failed to get job stats: %w", err)
	}
	if active := snap.TotalJobs - snap.CompletedJobs - snap.FailedJobs; active > 0 {
		snap.ActiveJobs = int(active)
	}

	heartbeats, err := m.stats.Workers(ctx)
	if err != nil {
		return fmt.Errorf("failed to get workers: %w", err)
	}

	now := m.now()
	workers := make([]WorkerHealth, 0, len(heartbeats))
	for _, hb := range heartbeats {
		status := StatusHealthy
		if now.Sub(hb.LastHeartbeat) > staleHeartbeat {
			status = "unhealthy"
		} else {
			snap.HealthyWorkers++
		}
		workers = append(workers, WorkerHealth{
			WorkerID:      hb.WorkerID,
			Status:        status,
			LastHeartbeat: hb.LastHeartbeat,
			JobsInFlight:  hb.JobsInFlight,
		})
	}
	snap.WorkerCount = len(workers)
	snap.LastUpdated = now

	metrics.UpdateQueueDepth(queue.TransformQueueName, snap.QueueDepth)
	metrics.UpdateQueueDepth(queue.DeadLetterQueueName, snap.DLQDepth)
	metrics.UpdateActiveWorkers(snap.HealthyWorkers)

	m.mu.Lock()
	m.metrics = snap
	m.workers = workers
	m.mu.Unlock()
	return nil
}

// GetMetrics returns the latest snapshot
func (m *Monitor) GetMetrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics
}

// GetWorkerHealth returns the workers seen in the latest snapshot
func (m *Monitor) GetWorkerHealth() []WorkerHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	workers := make([]WorkerHealth, len(m.workers))
	copy(workers, m.workers)
	return workers
}

// GetSystemHealth returns healthy, warning or critical
func (m *Monitor) GetSystemHealth() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return systemHealth(m.metrics)
}

// GetAlerts describes every crossed threshold
func (m *Monitor) GetAlerts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return alerts(m.metrics)
}

func systemHealth(s Metrics) string {
	if s.DLQDepth > maxDLQDepth {
		return StatusCritical
	}
	// Pending work with nobody to run it
	if s.QueueDepth > 0 && s.HealthyWorkers == 0 {
		return StatusCritical
	}
	if s.QueueDepth > maxQueueDepth {
		return StatusWarning
	}

	if s.WorkerCount > 0 {
		healthyRatio := float64(s.HealthyWorkers) / float64(s.WorkerCount)
		if healthyRatio < 0.5 {
			return StatusCritical
		}
		if healthyRatio < 0.8 {
			return StatusWarning
		}
	}

	if failureRate(s) > maxFailureRate {
		return StatusWarning
	}
	return StatusHealthy
}

func alerts(s Metrics) []string {
	alerts := []string{}

	if s.DLQDepth > maxDLQDepth {
		alerts = append(alerts, fmt.Sprintf("High DLQ depth: %d messages", s.DLQDepth))
	}
	if s.QueueDepth > maxQueueDepth {
		alerts = append(alerts, fmt.Sprintf("High queue depth: %d jobs pending", s.QueueDepth))
	}
	if s.QueueDepth > 0 && s.HealthyWorkers == 0 {
		alerts = append(alerts, "No healthy workers for pending jobs")
	}
	if s.WorkerCount > 0 && s.HealthyWorkers < s.WorkerCount {
		alerts = append(alerts, fmt.Sprintf("Unhealthy workers: %d/%d",
			s.WorkerCount-s.HealthyWorkers, s.WorkerCount))
	}
	if rate := failureRate(s); rate > maxFailureRate {
		alerts = append(alerts, fmt.Sprintf("High failure rate: %.1f%%", rate*100))
	}
	return alerts
}

func failureRate(s Metrics) float64 {
	if s.TotalJobs == 0 {
		return 0
	}
	return float64(s.FailedJobs) / float64(s.TotalJobs)
}
