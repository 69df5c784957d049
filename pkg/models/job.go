package models

import (
	"time"
)

// TransformJob tracks a transform request handed to a worker
type TransformJob struct {
	ID          string           `json:"id"`
	Request     TransformRequest `json:"request"`
	Status      string           `json:"status"`
	Priority    int              `json:"priority"`
	CallbackURL string           `json:"callback_url,omitempty"`
	Result      *TransformResult `json:"result,omitempty"`
	ObjectKey   string           `json:"object_key,omitempty"`
	ObjectURL   string           `json:"object_url,omitempty"`
	ErrorMsg    string           `json:"error_msg,omitempty"`
	WorkerID    string           `json:"worker_id,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// JobStatus constants
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobPriority constants
const (
	JobPriorityLow    = 0
	JobPriorityNormal = 5
	JobPriorityHigh   = 10
)

// IsTerminal reports whether the job reached a final status
func (j *TransformJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
