// Package worker consumes background indexing tasks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
	"github.com/satgraffin/satgraffin/internal/core/ports/driving"
	"github.com/satgraffin/satgraffin/internal/core/services"
)

// Worker processes tasks from the task queue.
// It re-indexes pages for refresh_page tasks and rebuilds the index for rebuild tasks.
type Worker struct {
	taskQueue driven.TaskQueue
	indexing  driving.IndexingService
	lock      driven.DistributedLock
	logger    *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout time.Duration
	lockTTL        time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Indexing       driving.IndexingService
	Lock           driven.DistributedLock // Optional: refresh locks taken by the query service
	Logger         *slog.Logger
	Concurrency    int           // Number of concurrent task processors
	DequeueTimeout time.Duration // How long to wait for a task before checking again
	LockTTL        time.Duration // Lease given to a refresh lock while its task waits for a retry
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5 * time.Second
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = services.DefaultRefreshLockTTL
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		indexing:       cfg.Indexing,
		lock:           cfg.Lock,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
		lockTTL:        lockTTL,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	// Workers stop dequeuing as soon as Stop is called, but a task already
	// in flight runs to completion under its own context.
	loopCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-loopCtx.Done():
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(loopCtx, context.WithoutCancel(ctx), workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		cancel()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	// Wait for workers to finish
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	w.mu.RLock()
	done := w.doneCh
	w.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(loopCtx, taskCtx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Debug("worker goroutine started")

	for {
		if loopCtx.Err() != nil {
			logger.Debug("worker goroutine stopping")
			return
		}

		task, err := w.taskQueue.DequeueWithTimeout(loopCtx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, domain.ErrQueueClosed) {
				logger.Info("task queue closed")
				return
			}
			logger.Error("failed to dequeue task", "error", err)
			select {
			case <-time.After(time.Second):
			case <-loopCtx.Done():
			}
			continue
		}

		if task == nil {
			continue
		}

		w.processTask(taskCtx, task, logger)
	}
}

// processTask runs one task and acknowledges it.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "attempt", task.Attempts)
	logger.Info("processing task")

	startTime := time.Now()
	err := w.run(ctx, task)
	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed", "duration", duration, "error", err)

		// Nack the task so it can be retried
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		if task.CanRetry() {
			w.holdRefreshLock(ctx, task, logger)
			return
		}
		logger.Warn("task dropped after final attempt", "attempts", task.Attempts)
		w.releaseRefreshLock(ctx, task, logger)
		return
	}

	logger.Info("task completed", "duration", duration)

	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
	w.releaseRefreshLock(ctx, task, logger)
}

// run dispatches a task, turning a panic into an error.
func (w *Worker) run(ctx context.Context, task *domain.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch task.Type {
	case domain.TaskTypeRefreshPage:
		return w.handleRefreshPage(ctx, task)
	case domain.TaskTypeRebuild:
		return w.handleRebuild(ctx)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

// handleRefreshPage handles a refresh_page task.
func (w *Worker) handleRefreshPage(ctx context.Context, task *domain.Task) error {
	url := task.URL()
	if url == "" {
		return fmt.Errorf("url not found in task payload")
	}

	result, err := w.indexing.IndexPage(ctx, url)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("indexing failed at %s: %s", result.Stage, result.Error)
	}
	return nil
}

// handleRebuild handles a rebuild task.
func (w *Worker) handleRebuild(ctx context.Context) error {
	result, err := w.indexing.Rebuild(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("rebuild finished", "pages", result.Pages, "chunks", result.Chunks)
	return nil
}

func (w *Worker) releaseRefreshLock(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	if w.lock == nil || task.Type != domain.TaskTypeRefreshPage || task.URL() == "" {
		return
	}
	if err := w.lock.Release(ctx, services.RefreshLockName(task.URL())); err != nil {
		logger.Warn("failed to release refresh lock", "error", err)
	}
}

// holdRefreshLock keeps the page locked while its retry waits in the queue.
func (w *Worker) holdRefreshLock(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	if w.lock == nil || task.Type != domain.TaskTypeRefreshPage || task.URL() == "" {
		return
	}
	if err := w.lock.Extend(ctx, services.RefreshLockName(task.URL()), w.lockTTL); err != nil {
		logger.Debug("failed to extend refresh lock", "error", err)
	}
}

// Health is the health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	// Check queue health
	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
