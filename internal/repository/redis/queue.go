package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"clippilot/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key patterns
const (
	queueKeyPrefix   = "queue:"      // queue:job_type
	jobKeyPrefix     = "job:"        // job:job_id
	processingPrefix = "processing:" // processing:job_type
	retryKeyPrefix   = "retry:"      // retry:job_type
	deadLetterPrefix = "dead:"       // dead:job_type
	statsKeyPrefix   = "stats:"      // stats:job_type
)

// Job retry configuration
const (
	defaultMaxRetries = 3
	initialBackoffSec = 5
	maxBackoffSec     = 300       // 5 minutes
	jobTTL            = 24 * time.Hour
	finishedJobTTL    = 6 * time.Hour
)

// QueueRepository implements the domain.QueueRepository interface using Redis
type QueueRepository struct {
	client         *redis.Client
	logger         *slog.Logger
	maxRetries     int
	dequeueTimeout time.Duration
	now            func() time.Time
}

// QueueOption customises a QueueRepository
type QueueOption func(*QueueRepository)

// WithMaxRetries sets how many times a failed job is retried before it is
// moved to the dead letter list.
func WithMaxRetries(n int) QueueOption {
	return func(r *QueueRepository) {
		r.maxRetries = n
	}
}

// WithDequeueTimeout sets how long Dequeue blocks on an empty queue
func WithDequeueTimeout(d time.Duration) QueueOption {
	return func(r *QueueRepository) {
		r.dequeueTimeout = d
	}
}

// NewQueueRepository creates a new Redis queue repository
func NewQueueRepository(client *redis.Client, logger *slog.Logger, opts ...QueueOption) *QueueRepository {
	r := &QueueRepository{
		client:         client,
		logger:         logger,
		maxRetries:     defaultMaxRetries,
		dequeueTimeout: time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// jobRecord is the JSON document stored under job:<id>
type jobRecord struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	Status     string                 `json:"status"`
	Result     map[string]interface{} `json:"result,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  *time.Time             `json:"updated_at,omitempty"`
	RetryCount int                    `json:"retry_count"`
	MaxRetries int                    `json:"max_retries"`
	NextRetry  *time.Time             `json:"next_retry,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func (j *jobRecord) toDomain() *domain.QueueJob {
	job := &domain.QueueJob{
		ID:         j.ID,
		Type:       j.Type,
		Payload:    j.Payload,
		Status:     j.Status,
		Result:     j.Result,
		Error:      j.Error,
		RetryCount: j.RetryCount,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
	}
	if j.UpdatedAt != nil {
		updatedAt := j.UpdatedAt.Format(time.RFC3339)
		job.UpdatedAt = &updatedAt
	}
	return job
}

// Enqueue adds a new job to the queue and returns its id
func (r *QueueRepository) Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error) {
	// Round-trip the payload so any struct is stored as a plain JSON object
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	var payloadMap map[string]interface{}
	if err := json.Unmarshal(payloadBytes, &payloadMap); err != nil {
		return "", fmt.Errorf("failed to unmarshal payload to map: %w", err)
	}

	job := &jobRecord{
		ID:         uuid.New().String(),
		Type:       jobType,
		Payload:    payloadMap,
		Status:     domain.JobStatusPending,
		CreatedAt:  r.now().UTC(),
		MaxRetries: r.maxRetries,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := r.client.TxPipeline()

	jobKey := jobKeyPrefix + job.ID
	pipe.HSet(ctx, jobKey, map[string]interface{}{
		"data":        string(jobData),
		"status":      job.Status,
		"type":        job.Type,
		"created_at":  job.CreatedAt.Unix(),
		"retry_count": 0,
	})
	pipe.Expire(ctx, jobKey, jobTTL)

	pipe.LPush(ctx, queueKeyPrefix+jobType, job.ID)

	statsKey := statsKeyPrefix + jobType
	pipe.HIncrBy(ctx, statsKey, "total_enqueued", 1)
	pipe.HIncrBy(ctx, statsKey, "pending", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	r.logger.Info("Job enqueued",
		"job_id", job.ID,
		"job_type", jobType,
		"payload_size", len(payloadBytes),
	)

	return job.ID, nil
}

// Dequeue moves the next job onto the processing list and returns it.
// Returns nil, nil when the queue stayed empty for the dequeue timeout.
func (r *QueueRepository) Dequeue(ctx context.Context, jobType string) (*domain.QueueJob, error) {
	processingKey := processingPrefix + jobType

	// Atomic move so a crashed worker leaves the id on the processing list
	jobID, err := r.client.BRPopLPush(ctx, queueKeyPrefix+jobType, processingKey, r.dequeueTimeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			r.logger.Warn("Job data not found, removing from processing", "job_id", jobID)
			r.client.LRem(ctx, processingKey, 1, jobID)
		}
		return nil, err
	}

	now := r.now().UTC()
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = &now

	pipe := r.client.TxPipeline()
	if err := r.saveJob(ctx, pipe, job); err != nil {
		return nil, err
	}
	statsKey := statsKeyPrefix + jobType
	pipe.HIncrBy(ctx, statsKey, "pending", -1)
	pipe.HIncrBy(ctx, statsKey, "processing", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to update job status", "error", err, "job_id", jobID)
	}

	r.logger.Info("Job dequeued",
		"job_id", job.ID,
		"job_type", jobType,
		"retry_count", job.RetryCount,
	)

	return job.toDomain(), nil
}

// Complete marks a job as completed, stores its result and removes it
// from the processing list.
func (r *QueueRepository) Complete(ctx context.Context, jobID string, result map[string]interface{}) error {
	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job for completion: %w", err)
	}

	now := r.now().UTC()
	job.Status = domain.JobStatusCompleted
	job.Result = result
	job.Error = ""
	job.UpdatedAt = &now

	pipe := r.client.TxPipeline()
	if err := r.saveJob(ctx, pipe, job); err != nil {
		return err
	}
	pipe.LRem(ctx, processingPrefix+job.Type, 1, jobID)

	statsKey := statsKeyPrefix + job.Type
	pipe.HIncrBy(ctx, statsKey, "processing", -1)
	pipe.HIncrBy(ctx, statsKey, "completed", 1)

	pipe.Expire(ctx, jobKeyPrefix+jobID, finishedJobTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	r.logger.Info("Job completed", "job_id", jobID, "job_type", job.Type)
	return nil
}

// Fail records the error and schedules a retry with exponential backoff,
// or moves the job to the dead letter list once retries are exhausted.
func (r *QueueRepository) Fail(ctx context.Context, jobID string, errorMsg string) error {
	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job for failure: %w", err)
	}

	now := r.now().UTC()
	job.Error = errorMsg
	job.UpdatedAt = &now
	job.RetryCount++

	pipe := r.client.TxPipeline()
	statsKey := statsKeyPrefix + job.Type

	if job.RetryCount <= job.MaxRetries {
		nextRetry := now.Add(retryBackoff(job.RetryCount))
		job.NextRetry = &nextRetry
		job.Status = domain.JobStatusPending

		pipe.ZAdd(ctx, retryKeyPrefix+job.Type, redis.Z{
			Score:  float64(nextRetry.Unix()),
			Member: jobID,
		})

		r.logger.Info("Job scheduled for retry",
			"job_id", jobID,
			"job_type", job.Type,
			"retry_count", job.RetryCount,
			"next_retry", nextRetry,
			"error", errorMsg,
		)
	} else {
		job.Status = domain.JobStatusFailed
		job.NextRetry = nil
		pipe.LPush(ctx, deadLetterPrefix+job.Type, jobID)
		pipe.HIncrBy(ctx, statsKey, "failed", 1)
		pipe.Expire(ctx, jobKeyPrefix+jobID, finishedJobTTL)

		r.logger.Error("Job failed permanently",
			"job_id", jobID,
			"job_type", job.Type,
			"retry_count", job.RetryCount,
			"error", errorMsg,
		)
	}

	if err := r.saveJob(ctx, pipe, job); err != nil {
		return err
	}
	pipe.LRem(ctx, processingPrefix+job.Type, 1, jobID)
	pipe.HIncrBy(ctx, statsKey, "processing", -1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to handle job failure: %w", err)
	}

	return nil
}

// GetJob returns a job by id
func (r *QueueRepository) GetJob(ctx context.Context, jobID string) (*domain.QueueJob, error) {
	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.toDomain(), nil
}

// GetPendingCount returns the number of pending jobs for a job type
func (r *QueueRepository) GetPendingCount(ctx context.Context, jobType string) (int, error) {
	count, err := r.client.LLen(ctx, queueKeyPrefix+jobType).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return int(count), nil
}

// ProcessRetryJobs moves jobs whose retry time has passed back onto the queue
func (r *QueueRepository) ProcessRetryJobs(ctx context.Context, jobType string) error {
	retryKey := retryKeyPrefix + jobType

	due, err := r.client.ZRangeByScore(ctx, retryKey, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(r.now().Unix(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get retry jobs: %w", err)
	}

	if len(due) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	statsKey := statsKeyPrefix + jobType
	for _, jobID := range due {
		pipe.ZRem(ctx, retryKey, jobID)
		pipe.LPush(ctx, queueKeyPrefix+jobType, jobID)
		pipe.HIncrBy(ctx, statsKey, "pending", 1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to process retry jobs: %w", err)
	}

	r.logger.Info("Processed retry jobs",
		"job_type", jobType,
		"count", len(due),
	)

	return nil
}

// GetQueueStats returns counters and current list sizes for a job type
func (r *QueueRepository) GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error) {
	stats, err := r.client.HGetAll(ctx, statsKeyPrefix+jobType).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	result := make(map[string]int64, len(stats)+4)
	for key, value := range stats {
		if val, err := strconv.ParseInt(value, 10, 64); err == nil {
			result[key] = val
		}
	}

	if pending, err := r.client.LLen(ctx, queueKeyPrefix+jobType).Result(); err == nil {
		result["current_pending"] = pending
	}
	if processing, err := r.client.LLen(ctx, processingPrefix+jobType).Result(); err == nil {
		result["current_processing"] = processing
	}
	if retrying, err := r.client.ZCard(ctx, retryKeyPrefix+jobType).Result(); err == nil {
		result["current_retrying"] = retrying
	}
	if dead, err := r.client.LLen(ctx, deadLetterPrefix+jobType).Result(); err == nil {
		result["current_dead"] = dead
	}

	return result, nil
}

func (r *QueueRepository) loadJob(ctx context.Context, jobID string) (*jobRecord, error) {
	data, err := r.client.HGet(ctx, jobKeyPrefix+jobID, "data").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}

	var job jobRecord
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (r *QueueRepository) saveJob(ctx context.Context, pipe redis.Pipeliner, job *jobRecord) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	fields := map[string]interface{}{
		"data":        string(data),
		"status":      job.Status,
		"retry_count": job.RetryCount,
	}
	if job.UpdatedAt != nil {
		fields["updated_at"] = job.UpdatedAt.Unix()
	}
	if job.Error != "" {
		fields["error"] = job.Error
	}

	pipe.HSet(ctx, jobKeyPrefix+job.ID, fields)
	return nil
}

// retryBackoff doubles from initialBackoffSec, capped at maxBackoffSec
func retryBackoff(retryCount int) time.Duration {
	sec := math.Min(
		float64(initialBackoffSec)*math.Pow(2, float64(retryCount-1)),
		float64(maxBackoffSec),
	)
	return time.Duration(sec) * time.Second
}
