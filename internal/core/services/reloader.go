package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
	"github.com/satgraffin/satgraffin/internal/core/ports/driving"
	"github.com/satgraffin/satgraffin/internal/runtime"
)

// Reloader republishes the retrieval handle when another process has
// saved a newer vector index. It runs in API processes whose indexing
// happens in separate workers.
type Reloader struct {
	vectors   driven.VectorStore
	indexing  driving.IndexingService
	retrieval *runtime.Retrieval
	logger    *slog.Logger

	// Internal state
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration
}

// ReloaderConfig holds configuration for the reloader.
type ReloaderConfig struct {
	Vectors      driven.VectorStore
	Indexing     driving.IndexingService
	Retrieval    *runtime.Retrieval
	Logger       *slog.Logger
	PollInterval time.Duration // How often to check the store revision (default: 10s)
}

// NewReloader creates a new reloader.
func NewReloader(cfg ReloaderConfig) *Reloader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &Reloader{
		vectors:   cfg.Vectors,
		indexing:  cfg.Indexing,
		retrieval: cfg.Retrieval,
		logger:    logger,
		interval:  interval,
	}
}

// Start begins polling. It runs until Stop is called or ctx is cancelled.
func (r *Reloader) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	r.logger.Info("reloader starting", "poll_interval", r.interval)

	go r.run(ctx)
}

// Stop gracefully stops the reloader.
func (r *Reloader) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	r.mu.Unlock()

	<-r.doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.logger.Info("reloader stopped")
}

func (r *Reloader) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}

// Check reloads once if the stored revision differs from the published one.
// Returns true when a reload was attempted.
func (r *Reloader) Check(ctx context.Context) bool {
	rev, err := r.vectors.Revision(ctx)
	if err != nil {
		r.logger.Warn("failed to read vector store revision", "error", err)
		return false
	}

	status := r.retrieval.Status()
	if status.IsReady() && status.Revision == rev {
		return false
	}
	if rev == 0 {
		return false
	}

	r.logger.Info("vector store changed, reloading", "from", status.Revision, "to", rev)
	if err := r.indexing.Load(ctx); err != nil {
		r.logger.Error("reload failed", "error", err)
	}
	return true
}
