package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"clippilot/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestQueue(t *testing.T, opts ...QueueOption) (*QueueRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	opts = append([]QueueOption{WithDequeueTimeout(50 * time.Millisecond)}, opts...)
	return NewQueueRepository(client, createTestLogger(), opts...), mr
}

func testPayload() domain.CaptionJobPayload {
	return domain.CaptionJobPayload{URL: "https://www.instagram.com/p/abc123/", ChannelID: "42"}
}

func TestQueueEnqueueDequeueComplete(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	id, err := q.Enqueue(ctx, domain.JobTypeExtractCaption, testPayload())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	count, err := q.GetPendingCount(ctx, domain.JobTypeExtractCaption)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	job, err := q.Dequeue(ctx, domain.JobTypeExtractCaption)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	assert.Equal(t, "https://www.instagram.com/p/abc123/", job.Payload["url"])
	assert.Equal(t, "42", job.Payload["channel_id"])
	assert.NotNil(t, job.UpdatedAt)

	result := map[string]interface{}{"caption": "hello", "found": true}
	require.NoError(t, q.Complete(ctx, id, result))

	stored, err := q.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, stored.Status)
	assert.Equal(t, "hello", stored.Result["caption"])
	assert.Equal(t, true, stored.Result["found"])

	stats, err := q.GetQueueStats(ctx, domain.JobTypeExtractCaption)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["total_enqueued"])
	assert.Equal(t, int64(1), stats["completed"])
	assert.Equal(t, int64(0), stats["current_pending"])
	assert.Equal(t, int64(0), stats["current_processing"])
}

func TestQueueDequeueEmpty(t *testing.T) {
	q, _ := newTestQueue(t)

	job, err := q.Dequeue(context.Background(), domain.JobTypeExtractCaption)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestQueueGetJobNotFound(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestQueueFailSchedulesRetryThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, WithMaxRetries(1))

	id, err := q.Enqueue(ctx, domain.JobTypeExtractCaption, testPayload())
	require.NoError(t, err)

	_, err = q.Dequeue(ctx, domain.JobTypeExtractCaption)
	require.NoError(t, err)
	require.NoError(t, q.Fail(ctx, id, "upstream exploded"))

	job, err := q.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, "upstream exploded", job.Error)

	// Not due yet
	require.NoError(t, q.ProcessRetryJobs(ctx, domain.JobTypeExtractCaption))
	count, err := q.GetPendingCount(ctx, domain.JobTypeExtractCaption)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	q.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.NoError(t, q.ProcessRetryJobs(ctx, domain.JobTypeExtractCaption))
	count, err = q.GetPendingCount(ctx, domain.JobTypeExtractCaption)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = q.Dequeue(ctx, domain.JobTypeExtractCaption)
	require.NoError(t, err)
	require.NoError(t, q.Fail(ctx, id, "still broken"))

	job, err = q.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, 2, job.RetryCount)

	stats, err := q.GetQueueStats(ctx, domain.JobTypeExtractCaption)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["failed"])
	assert.Equal(t, int64(1), stats["current_dead"])
	assert.Equal(t, int64(0), stats["current_retrying"])
}

func TestQueueDequeueDropsOrphanedID(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQueue(t)

	_, err := mr.Lpush(queueKeyPrefix+domain.JobTypeExtractCaption, "ghost")
	require.NoError(t, err)

	_, err = q.Dequeue(ctx, domain.JobTypeExtractCaption)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	processing, err := q.client.LLen(ctx, processingPrefix+domain.JobTypeExtractCaption).Result()
	require.NoError(t, err)
	assert.Zero(t, processing)
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{retry: 1, want: 5 * time.Second},
		{retry: 2, want: 10 * time.Second},
		{retry: 3, want: 20 * time.Second},
		{retry: 10, want: 300 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, retryBackoff(tt.retry))
	}
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewClient(ctx, "redis://"+mr.Addr()+"/0", createTestLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, HealthCheck(client)(ctx))

	_, err = NewClient(ctx, "not a url", createTestLogger())
	assert.Error(t, err)
}
