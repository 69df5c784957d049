package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// HeartbeatTTL is how long a worker counts as alive after its last heartbeat
const HeartbeatTTL = 2 * time.Minute

// WorkerStatus is the last heartbeat of a worker
type WorkerStatus struct {
	WorkerID      string    `json:"worker_id"`
	JobsInFlight  int       `json:"jobs_in_flight"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

func workerKey(id string) string {
	return fmt.Sprintf("worker:%s", id)
}

// Heartbeat records that workerID is alive
func (s *Store) Heartbeat(ctx context.Context, workerID string, inFlight int) error {
	data, err := json.Marshal(WorkerStatus{
		WorkerID:      workerID,
		JobsInFlight:  inFlight,
		LastHeartbeat: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal heartbeat: %w", err)
	}
	return s.client.Set(ctx, workerKey(workerID), data, HeartbeatTTL).Err()
}

// RemoveWorker drops the heartbeat of a worker that shut down
func (s *Store) RemoveWorker(ctx context.Context, workerID string) error {
	return s.client.Del(ctx, workerKey(workerID)).Err()
}

// Workers returns the live workers sorted by id
func (s *Store) Workers(ctx context.Context) ([]WorkerStatus, error) {
	var workers []WorkerStatus

	iter := s.client.Scan(ctx, 0, workerKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			// Expired between scan and get
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read heartbeat: %w", err)
		}
		var w WorkerStatus
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("failed to unmarshal heartbeat: %w", err)
		}
		workers = append(workers, w)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan workers: %w", err)
	}

	sort.Slice(workers, func(i, j int) bool { return workers[i].WorkerID < workers[j].WorkerID })
	return workers, nil
}
