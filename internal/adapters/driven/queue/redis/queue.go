// Package redis implements the task queue on Redis Streams, so API and
// worker processes can run separately.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

const (
	taskStream     = "satgraffin:tasks"
	taskGroup      = "satgraffin:workers"
	scheduledTasks = "satgraffin:scheduled"
	taskKeyPrefix  = "satgraffin:task:"
	completedKey   = "satgraffin:stats:completed"
	failedKey      = "satgraffin:stats:failed"

	consumerPrefix = "worker-"

	// claimTimeout is how long a delivered task may stay unacknowledged
	// before another consumer takes it over.
	claimTimeout = 5 * time.Minute

	// taskTTL bounds how long task records outlive their processing.
	taskTTL = 24 * time.Hour
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue using a Redis stream with one consumer group.
// Task bodies live in plain keys; the stream only carries task IDs.
// Delayed retries wait in a sorted set scored by due time.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates the consumer group if needed.
// consumerName should be unique per worker process.
func NewQueue(ctx context.Context, client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	err := client.XGroupCreateMkStream(ctx, taskStream, taskGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Queue{client: client, consumerName: consumerName}, nil
}

// Enqueue stores the task and either streams it or schedules it.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL)
	if task.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, scheduledTasks, redis.Z{Score: float64(task.ScheduledFor.UnixMilli()), Member: task.ID})
	} else {
		pipe.XAdd(ctx, streamArgs(task))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

func streamArgs(task *domain.Task) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: taskStream,
		Values: map[string]any{"task_id": task.ID, "type": string(task.Type)},
	}
}

// DequeueWithTimeout returns the next task, blocking up to timeout.
// Abandoned deliveries are reclaimed before new ones are read.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Task, error) {
	_ = q.promoteScheduledTasks(ctx)

	if task, err := q.claimAbandonedTask(ctx); err == nil && task != nil {
		return task, nil
	}

	block := timeout
	if block <= 0 {
		block = -1
	}
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    taskGroup,
		Consumer: q.consumerName,
		Streams:  []string{taskStream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	return q.start(ctx, streams[0].Messages[0])
}

// start loads the task behind msg and marks it processing. Messages
// pointing at missing tasks are dropped.
func (q *Queue) start(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	taskID, _ := msg.Values["task_id"].(string)
	task, err := q.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		q.client.XAck(ctx, taskStream, taskGroup, msg.ID)
		q.client.XDel(ctx, taskStream, msg.ID)
		return nil, nil
	}

	task.MarkProcessing()
	data, _ := json.Marshal(task)
	pipe := q.client.Pipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL)
	pipe.Set(ctx, taskKeyPrefix+task.ID+":msg", msg.ID, taskTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to mark task processing: %w", err)
	}
	return task, nil
}

// Ack acknowledges successful completion of a task.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	task, err := q.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return domain.ErrNotFound
	}
	task.MarkCompleted()
	return q.finish(ctx, task, completedKey)
}

// Nack reschedules the task with backoff, or marks it failed once its
// attempts are used up.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return domain.ErrNotFound
	}

	if task.CanRetry() {
		task.Retry(reason)
		return q.finish(ctx, task, "")
	}
	task.MarkFailed(reason)
	return q.finish(ctx, task, failedKey)
}

// finish acknowledges the stream delivery, stores task and, for retries,
// schedules it again. counter, if set, is incremented.
func (q *Queue) finish(ctx context.Context, task *domain.Task, counter string) error {
	msgID, err := q.client.Get(ctx, taskKeyPrefix+task.ID+":msg").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL)
	pipe.Del(ctx, taskKeyPrefix+task.ID+":msg")
	if task.Status == domain.TaskStatusPending {
		pipe.ZAdd(ctx, scheduledTasks, redis.Z{Score: float64(task.ScheduledFor.UnixMilli()), Member: task.ID})
	}
	if counter != "" {
		pipe.Incr(ctx, counter)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to finish task: %w", err)
	}
	return nil
}

func (q *Queue) getTask(ctx context.Context, taskID string) (*domain.Task, error) {
	if taskID == "" {
		return nil, nil
	}
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// Stats returns queue statistics. Pending includes delayed retries.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	pipe := q.client.Pipeline()
	streamLen := pipe.XLen(ctx, taskStream)
	scheduled := pipe.ZCard(ctx, scheduledTasks)
	pending := pipe.XPending(ctx, taskStream, taskGroup)
	completed := pipe.Get(ctx, completedKey)
	failed := pipe.Get(ctx, failedKey)
	_, _ = pipe.Exec(ctx)

	if err := streamLen.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get stream length: %w", err)
	}

	stats := &driven.QueueStats{}
	if p, err := pending.Result(); err == nil {
		stats.ProcessingCount = p.Count
	}
	// Delivered but unacknowledged messages stay in the stream.
	stats.PendingCount = streamLen.Val() - stats.ProcessingCount + scheduled.Val()
	stats.CompletedCount = counterValue(completed)
	stats.FailedCount = counterValue(failed)
	return stats, nil
}

func counterValue(cmd *redis.StringCmd) int64 {
	n, _ := strconv.ParseInt(cmd.Val(), 10, 64)
	return n
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is shared.
func (q *Queue) Close() error {
	return nil
}

// promoteScheduledTasks moves due delayed tasks onto the stream.
func (q *Queue) promoteScheduledTasks(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, scheduledTasks, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}).Result()
	if err != nil || len(due) == 0 {
		return err
	}

	for _, taskID := range due {
		// ZRem wins the race between workers promoting the same task.
		removed, err := q.client.ZRem(ctx, scheduledTasks, taskID).Result()
		if err != nil || removed == 0 {
			continue
		}
		task, err := q.getTask(ctx, taskID)
		if err != nil || task == nil {
			continue
		}
		q.client.XAdd(ctx, streamArgs(task))
	}
	return nil
}

// claimAbandonedTask takes over a delivery that has been idle too long.
func (q *Queue) claimAbandonedTask(ctx context.Context) (*domain.Task, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: taskStream,
		Group:  taskGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   taskStream,
			Group:    taskGroup,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}
		task, err := q.start(ctx, claimed[0])
		if err != nil || task == nil {
			continue
		}
		return task, nil
	}
	return nil, nil
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
