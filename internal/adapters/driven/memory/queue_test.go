package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

func TestQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	a := domain.NewRefreshPageTask("https://mosdac.gov.in/a")
	b := domain.NewRefreshPageTask("https://mosdac.gov.in/b")
	require.NoError(t, q.Enqueue(ctx, a))
	require.NoError(t, q.Enqueue(ctx, b))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)

	got, err = q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	got, err = q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_WaitsForEnqueue(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	task := domain.NewRebuildTask()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Enqueue(ctx, task)
	}()

	got, err := q.DequeueWithTimeout(ctx, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
}

func TestQueue_ContextCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.DequeueWithTimeout(ctx, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_NackRetriesWithBackoff(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	task := domain.NewRefreshPageTask("https://mosdac.gov.in/a")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, got.ID, "boom"))

	none, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, none, "first retry waits two seconds")

	again, err := q.DequeueWithTimeout(ctx, 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 2, again.Attempts)
	assert.Equal(t, "boom", again.Error)
}

func TestQueue_NackExhausted(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	task := domain.NewRefreshPageTask("https://mosdac.gov.in/a")
	task.MaxAttempts = 1
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, got.ID, "boom"))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &driven.QueueStats{FailedCount: 1}, stats)
}

func TestQueue_AckAndStats(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	require.NoError(t, q.Enqueue(ctx, domain.NewRebuildTask()))
	require.NoError(t, q.Enqueue(ctx, domain.NewRebuildTask()))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)

	stats, _ := q.Stats(ctx)
	assert.Equal(t, &driven.QueueStats{PendingCount: 1, ProcessingCount: 1}, stats)

	require.NoError(t, q.Ack(ctx, got.ID))
	assert.ErrorIs(t, q.Ack(ctx, got.ID), domain.ErrNotFound)

	stats, _ = q.Stats(ctx)
	assert.Equal(t, &driven.QueueStats{PendingCount: 1, CompletedCount: 1}, stats)
}

func TestQueue_Close(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Enqueue(ctx, domain.NewRebuildTask()), domain.ErrQueueClosed)
	_, err := q.DequeueWithTimeout(ctx, time.Second)
	assert.ErrorIs(t, err, domain.ErrQueueClosed)
}
