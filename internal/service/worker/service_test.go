package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"clippilot/internal/config"
	"clippilot/internal/domain"
	redisrepo "clippilot/internal/repository/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *redisrepo.QueueRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisrepo.NewQueueRepository(client, createTestLogger(), redisrepo.WithDequeueTimeout(50*time.Millisecond))
}

func enqueueCaptionJob(t *testing.T, q domain.QueueRepository) string {
	t.Helper()
	id, err := q.Enqueue(context.Background(), domain.JobTypeExtractCaption, domain.CaptionJobPayload{URL: testPostURL})
	require.NoError(t, err)
	return id
}

func TestWorkerCompletesCaptionJob(t *testing.T) {
	q := newTestQueue(t)
	id := enqueueCaptionJob(t, q)

	w := New(&config.Config{}, createTestLogger(), q, &fakeExtractor{result: domain.CaptionResult{Caption: "Sunset"}}, nil)
	w.processJobType(domain.JobTypeExtractCaption)

	job, err := q.GetJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, "Sunset", job.Result["caption"])
	assert.Equal(t, true, job.Result["found"])

	stats := w.GetStats()
	assert.Equal(t, int64(1), stats.JobsProcessed)
	assert.Equal(t, int64(1), stats.JobsSucceeded)
	assert.Zero(t, stats.JobsFailed)
}

func TestWorkerCompletesNotFoundJob(t *testing.T) {
	q := newTestQueue(t)
	id := enqueueCaptionJob(t, q)

	w := New(&config.Config{}, createTestLogger(), q, &fakeExtractor{err: &domain.NotFoundError{URL: testPostURL}}, nil)
	w.processJobType(domain.JobTypeExtractCaption)

	job, err := q.GetJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, false, job.Result["found"])
}

func TestWorkerFailsUpstreamErrorForRetry(t *testing.T) {
	q := newTestQueue(t)
	id := enqueueCaptionJob(t, q)

	upstream := &domain.UpstreamError{Strategy: "resolver", Err: errors.New("yt-dlp exited with status 1")}
	w := New(&config.Config{}, createTestLogger(), q, &fakeExtractor{err: upstream}, nil)
	w.processJobType(domain.JobTypeExtractCaption)

	job, err := q.GetJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Contains(t, job.Error, "yt-dlp exited with status 1")

	assert.Equal(t, int64(1), w.GetStats().JobsFailed)
}

func TestWorkerStartStop(t *testing.T) {
	q := newTestQueue(t)
	id := enqueueCaptionJob(t, q)

	notifier := &fakeNotifier{}
	cfg := &config.Config{WorkerPollInterval: 10 * time.Millisecond}
	w := New(cfg, createTestLogger(), q, &fakeExtractor{result: domain.CaptionResult{Caption: "Sunset"}}, notifier)

	go func() {
		_ = w.Start()
	}()

	require.Eventually(t, func() bool {
		job, err := q.GetJob(context.Background(), id)
		return err == nil && job.Status == domain.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.HealthCheck(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))

	assert.True(t, notifier.closed)
	assert.Error(t, w.HealthCheck(context.Background()))
}

func TestWorkerHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	q := redisrepo.NewQueueRepository(client, createTestLogger())

	w := New(&config.Config{}, createTestLogger(), q, &fakeExtractor{}, nil)
	ctx := context.Background()
	require.NoError(t, w.HealthCheck(ctx))

	mr.Close()
	assert.ErrorContains(t, w.HealthCheck(ctx), "queue connectivity check failed")

	w.cancel()
	assert.ErrorContains(t, w.HealthCheck(ctx), "worker context cancelled")
}
