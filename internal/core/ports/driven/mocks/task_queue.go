package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// MockTaskQueue records enqueued tasks.
type MockTaskQueue struct {
	mu     sync.Mutex
	tasks  []*domain.Task
	acked  []string
	nacked []string
	notify chan struct{}

	// EnqueueErr is returned from Enqueue when set.
	EnqueueErr error
}

// NewMockTaskQueue creates an empty queue.
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{notify: make(chan struct{}, 64)}
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.tasks = append(m.tasks, task)
	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

func (m *MockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Task, error) {
	deadline := time.After(timeout)
	for {
		m.mu.Lock()
		for _, t := range m.tasks {
			if t.Status == domain.TaskStatusPending {
				t.MarkProcessing()
				m.mu.Unlock()
				return t, nil
			}
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, nil
		case <-m.notify:
		}
	}
}

func (m *MockTaskQueue) Ack(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, taskID)
	for _, t := range m.tasks {
		if t.ID == taskID {
			t.MarkCompleted()
		}
	}
	return nil
}

func (m *MockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked = append(m.nacked, taskID)
	for _, t := range m.tasks {
		if t.ID == taskID {
			t.MarkFailed(reason)
		}
	}
	return nil
}

func (m *MockTaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &driven.QueueStats{}
	for _, t := range m.tasks {
		switch t.Status {
		case domain.TaskStatusPending:
			stats.PendingCount++
		case domain.TaskStatusProcessing:
			stats.ProcessingCount++
		case domain.TaskStatusCompleted:
			stats.CompletedCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (m *MockTaskQueue) Ping(ctx context.Context) error {
	return nil
}

func (m *MockTaskQueue) Close() error {
	return nil
}

// Tasks returns every enqueued task.
func (m *MockTaskQueue) Tasks() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Task{}, m.tasks...)
}

// Acked returns acknowledged task IDs.
func (m *MockTaskQueue) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.acked...)
}

// Nacked returns negatively acknowledged task IDs.
func (m *MockTaskQueue) Nacked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.nacked...)
}
