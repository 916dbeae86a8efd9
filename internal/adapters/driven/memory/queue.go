package memory

import (
	"context"
	"sync"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.TaskQueue = (*Queue)(nil)

// Queue is an in-process TaskQueue. Tasks are delivered in FIFO order
// among those that are due; failed tasks wait out their backoff.
type Queue struct {
	mu        sync.Mutex
	pending   []*domain.Task
	inflight  map[string]*domain.Task
	completed int64
	failed    int64
	notify    chan struct{}
	closed    bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		inflight: make(map[string]*domain.Task),
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue adds a copy of task.
func (q *Queue) Enqueue(_ context.Context, task *domain.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return domain.ErrQueueClosed
	}
	t := *task
	q.pending = append(q.pending, &t)
	q.wake()
	return nil
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// DequeueWithTimeout returns the first due task, waiting up to timeout.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Task, error) {
	deadline := time.Now().Add(timeout)
	for {
		task, nextDue, err := q.take()
		if task != nil || err != nil {
			return task, err
		}

		wait := time.Until(deadline)
		if !nextDue.IsZero() {
			wait = min(wait, time.Until(nextDue))
		}
		if wait <= 0 {
			if time.Now().Before(deadline) {
				continue
			}
			return nil, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-q.notify:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// take removes the first due task. Otherwise it reports when the earliest
// delayed task becomes due, zero if none is waiting.
func (q *Queue) take() (*domain.Task, time.Time, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, time.Time{}, domain.ErrQueueClosed
	}

	now := time.Now()
	var nextDue time.Time
	for i, t := range q.pending {
		if !now.Before(t.ScheduledFor) {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			t.MarkProcessing()
			q.inflight[t.ID] = t
			out := *t
			return &out, time.Time{}, nil
		}
		if nextDue.IsZero() || t.ScheduledFor.Before(nextDue) {
			nextDue = t.ScheduledFor
		}
	}
	return nil, nextDue, nil
}

// Ack acknowledges successful completion of a task.
func (q *Queue) Ack(_ context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[taskID]; !ok {
		return domain.ErrNotFound
	}
	delete(q.inflight, taskID)
	q.completed++
	return nil
}

// Nack re-queues the task with backoff until its attempts are used up.
func (q *Queue) Nack(_ context.Context, taskID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.inflight[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	delete(q.inflight, taskID)

	if !t.CanRetry() {
		t.MarkFailed(reason)
		q.failed++
		return nil
	}
	t.Retry(reason)
	q.pending = append(q.pending, t)
	q.wake()
	return nil
}

// Stats returns queue statistics.
func (q *Queue) Stats(context.Context) (*driven.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return &driven.QueueStats{
		PendingCount:    int64(len(q.pending)),
		ProcessingCount: int64(len(q.inflight)),
		CompletedCount:  q.completed,
		FailedCount:     q.failed,
	}, nil
}

// Ping always succeeds.
func (q *Queue) Ping(context.Context) error { return nil }

// Close makes further Enqueue and Dequeue calls fail.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.wake()
	return nil
}
