package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

func setupQueue(t *testing.T) (*miniredis.Miniredis, *Queue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	q, err := NewQueue(context.Background(), client, "test-worker")
	require.NoError(t, err)
	return mr, q
}

func TestNewQueue_GroupAlreadyExists(t *testing.T) {
	mr, _ := setupQueue(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, err := NewQueue(context.Background(), client, "")
	assert.NoError(t, err)
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	_, q := setupQueue(t)
	ctx := context.Background()

	task := domain.NewRefreshPageTask("https://mosdac.gov.in/insat-3d")
	require.NoError(t, q.Enqueue(ctx, task))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingCount)

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "https://mosdac.gov.in/insat-3d", got.URL())
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.PendingCount)
	assert.Equal(t, int64(1), stats.ProcessingCount)

	require.NoError(t, q.Ack(ctx, got.ID))

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ProcessingCount)
	assert.Equal(t, int64(1), stats.CompletedCount)
}

func TestQueue_DequeueEmpty(t *testing.T) {
	_, q := setupQueue(t)

	got, err := q.DequeueWithTimeout(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_NackSchedulesRetry(t *testing.T) {
	mr, q := setupQueue(t)
	ctx := context.Background()

	task := domain.NewRefreshPageTask("https://mosdac.gov.in/a")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NoError(t, q.Nack(ctx, got.ID, "fetch failed"))

	members, err := mr.ZMembers(scheduledTasks)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, members)

	none, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, none, "retry is delayed")

	// Make the retry due.
	mr.ZAdd(scheduledTasks, float64(time.Now().Add(-time.Second).UnixMilli()), task.ID)

	again, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 2, again.Attempts)
	assert.Equal(t, "fetch failed", again.Error)
}

func TestQueue_NackExhausted(t *testing.T) {
	_, q := setupQueue(t)
	ctx := context.Background()

	task := domain.NewRefreshPageTask("https://mosdac.gov.in/a")
	task.MaxAttempts = 1
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NoError(t, q.Nack(ctx, got.ID, "still failing"))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.FailedCount)
	assert.Equal(t, int64(0), stats.PendingCount)
}

func TestQueue_AckUnknown(t *testing.T) {
	_, q := setupQueue(t)
	assert.ErrorIs(t, q.Ack(context.Background(), "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, q.Nack(context.Background(), "missing", "x"), domain.ErrNotFound)
}

func TestQueue_DelayedEnqueue(t *testing.T) {
	_, q := setupQueue(t)
	ctx := context.Background()

	task := domain.NewRebuildTask()
	task.ScheduledFor = time.Now().Add(time.Hour)
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingCount)
}

func TestQueue_Ping(t *testing.T) {
	_, q := setupQueue(t)
	assert.NoError(t, q.Ping(context.Background()))
	assert.NoError(t, q.Close())
}
