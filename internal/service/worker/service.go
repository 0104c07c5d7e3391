package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clippilot/internal/config"
	"clippilot/internal/domain"
)

// maxJobsPerCycle limits how many jobs one poll cycle handles
const maxJobsPerCycle = 10

// WorkerService processes background caption jobs
type WorkerService struct {
	config *config.Config
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	queueRepo domain.QueueRepository
	processor *CaptionProcessor
	notifier  Notifier

	done     chan struct{}
	stopOnce sync.Once

	statsMu sync.Mutex
	stats   WorkerStats
}

// WorkerStats tracks worker performance metrics
type WorkerStats struct {
	JobsProcessed  int64
	JobsSucceeded  int64
	JobsFailed     int64
	LastJobTime    time.Time
	AverageJobTime time.Duration
}

// New creates a new worker service. notifier may be nil when Discord
// notifications are disabled.
func New(
	config *config.Config,
	logger *slog.Logger,
	queueRepo domain.QueueRepository,
	extractor CaptionExtractor,
	notifier Notifier,
) *WorkerService {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerService{
		config:    config,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		queueRepo: queueRepo,
		processor: NewCaptionProcessor(logger, extractor, notifier),
		notifier:  notifier,
		done:      make(chan struct{}),
	}
}

// Start processes jobs until Stop is called
func (w *WorkerService) Start() error {
	w.logger.Info("Starting worker service...",
		"poll_interval", w.pollInterval(),
	)
	defer close(w.done)

	w.processJobs()
	return nil
}

// Stop gracefully shuts down the worker service, waiting for the current
// cycle to finish or ctx to expire.
func (w *WorkerService) Stop(ctx context.Context) error {
	var err error
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker service...")
		w.cancel()

		select {
		case <-w.done:
		case <-ctx.Done():
			err = fmt.Errorf("worker did not stop in time: %w", ctx.Err())
		}

		if w.notifier != nil {
			if closeErr := w.notifier.Close(); closeErr != nil {
				w.logger.Warn("Failed to close notifier", "error", closeErr)
			}
		}

		w.logger.Info("Worker service stopped")
	})
	return err
}

func (w *WorkerService) pollInterval() time.Duration {
	if w.config != nil && w.config.WorkerPollInterval > 0 {
		return w.config.WorkerPollInterval
	}
	return 5 * time.Second
}

// processJobs polls the queue on every tick
func (w *WorkerService) processJobs() {
	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Job processing stopped")
			return
		case <-ticker.C:
			w.processJobType(domain.JobTypeExtractCaption)
		}
	}
}

// processJobType promotes due retries and then drains up to
// maxJobsPerCycle pending jobs of jobType.
func (w *WorkerService) processJobType(jobType string) {
	ctx := w.ctx

	if err := w.queueRepo.ProcessRetryJobs(ctx, jobType); err != nil {
		w.logger.Error("Failed to process retry jobs",
			"error", err,
			"job_type", jobType,
		)
	}

	pendingCount, err := w.queueRepo.GetPendingCount(ctx, jobType)
	if err != nil {
		w.logger.Error("Failed to get pending job count",
			"error", err,
			"job_type", jobType,
		)
		return
	}

	if pendingCount == 0 {
		return
	}

	w.logger.Debug("Processing pending jobs",
		"job_type", jobType,
		"count", pendingCount,
	)

	maxJobs := min(pendingCount, maxJobsPerCycle)
	for i := 0; i < maxJobs; i++ {
		if ctx.Err() != nil {
			return
		}

		job, err := w.queueRepo.Dequeue(ctx, jobType)
		if err != nil {
			w.logger.Error("Failed to dequeue job",
				"error", err,
				"job_type", jobType,
			)
			continue
		}
		if job == nil {
			break
		}

		w.processJob(job)
	}
}

// processJob runs a single job and records its outcome on the queue
func (w *WorkerService) processJob(job *domain.QueueJob) {
	startTime := time.Now()
	jobLogger := w.logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
		"retry_count", job.RetryCount,
	)

	jobLogger.Info("Processing job")

	var result map[string]interface{}
	var processingErr error
	switch job.Type {
	case domain.JobTypeExtractCaption:
		result, processingErr = w.processor.ProcessCaptionExtraction(w.ctx, job.Payload, jobLogger)
	default:
		processingErr = fmt.Errorf("unknown job type: %s", job.Type)
	}

	// Queue bookkeeping must survive a shutdown that cancelled w.ctx mid-job
	ctx, cancel := context.WithTimeout(context.WithoutCancel(w.ctx), 5*time.Second)
	defer cancel()

	if processingErr != nil {
		jobLogger.Error("Job processing failed", "error", processingErr)
		if err := w.queueRepo.Fail(ctx, job.ID, processingErr.Error()); err != nil {
			jobLogger.Error("Failed to mark job as failed", "error", err)
		}
	} else {
		jobLogger.Info("Job processed successfully")
		if err := w.queueRepo.Complete(ctx, job.ID, result); err != nil {
			jobLogger.Error("Failed to mark job as completed", "error", err)
		}
	}

	jobDuration := time.Since(startTime)
	w.recordJob(processingErr == nil, jobDuration)

	jobLogger.Debug("Job processing completed",
		"duration", jobDuration,
		"success", processingErr == nil,
	)
}

func (w *WorkerService) recordJob(success bool, duration time.Duration) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	if success {
		w.stats.JobsSucceeded++
	} else {
		w.stats.JobsFailed++
	}
	w.stats.JobsProcessed++
	w.stats.LastJobTime = time.Now()

	// Running mean
	n := w.stats.JobsProcessed
	w.stats.AverageJobTime += (duration - w.stats.AverageJobTime) / time.Duration(n)
}

// GetStats returns a snapshot of worker statistics
func (w *WorkerService) GetStats() WorkerStats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

// HealthCheck performs a health check on the worker service
func (w *WorkerService) HealthCheck(ctx context.Context) error {
	if w.ctx.Err() != nil {
		return fmt.Errorf("worker context cancelled: %w", w.ctx.Err())
	}

	if _, err := w.queueRepo.GetPendingCount(ctx, domain.JobTypeExtractCaption); err != nil {
		return fmt.Errorf("queue connectivity check failed: %w", err)
	}

	return nil
}
