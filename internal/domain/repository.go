package domain

import (
	"context"
)

// QueueRepository defines the interface for job queue operations
type QueueRepository interface {
	// Enqueue adds a new job to the queue and returns its id
	Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error)

	// Dequeue retrieves the next job from the queue
	Dequeue(ctx context.Context, jobType string) (*QueueJob, error)

	// Complete marks a job as completed and stores its result
	Complete(ctx context.Context, jobID string, result map[string]interface{}) error

	// Fail marks a job as failed with error details
	Fail(ctx context.Context, jobID string, errorMsg string) error

	// GetJob returns a job by id, or ErrJobNotFound
	GetJob(ctx context.Context, jobID string) (*QueueJob, error)

	// ProcessRetryJobs moves due retries back onto the queue
	ProcessRetryJobs(ctx context.Context, jobType string) error

	// GetPendingCount returns the number of pending jobs
	GetPendingCount(ctx context.Context, jobType string) (int, error)

	// GetQueueStats returns lifetime counters and current list sizes
	GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error)
}

// QueueJob represents a job in the processing queue
type QueueJob struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	Status     string                 `json:"status"`
	Result     map[string]interface{} `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	RetryCount int                    `json:"retry_count"`
	CreatedAt  string                 `json:"created_at"`
	UpdatedAt  *string                `json:"updated_at,omitempty"`
}

// Job types
const (
	JobTypeExtractCaption = "extract_caption"
)

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)
