package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
	"github.com/satgraffin/satgraffin/internal/core/ports/driving"
	"github.com/satgraffin/satgraffin/internal/runtime"
)

// DefaultRefreshLockTTL bounds how long a crashed worker can block refreshes of a page.
const DefaultRefreshLockTTL = 5 * time.Minute

// RefreshLockName is the lock held while a background refresh of url is queued or running.
func RefreshLockName(url string) string {
	return "refresh:" + url
}

// Ensure queryService implements QueryService
var _ driving.QueryService = (*queryService)(nil)

// QueryConfig holds the dependencies of the retrieval orchestrator.
type QueryConfig struct {
	Links     *domain.LinkIndex
	Resolver  *Resolver
	Content   driven.ContentStore
	Indexing  driving.IndexingService
	Queue     driven.TaskQueue
	Lock      driven.DistributedLock
	Retrieval *runtime.Retrieval
	LockTTL   time.Duration
	Logger    *slog.Logger
}

// queryService routes a question to a page, keeps that page fresh and answers.
type queryService struct {
	links     *domain.LinkIndex
	resolver  *Resolver
	content   driven.ContentStore
	indexing  driving.IndexingService
	queue     driven.TaskQueue
	lock      driven.DistributedLock
	retrieval *runtime.Retrieval
	lockTTL   time.Duration
	logger    *slog.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(cfg QueryConfig) driving.QueryService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	links := cfg.Links
	if links == nil {
		links = domain.NewLinkIndex()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewResolver()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = DefaultRefreshLockTTL
	}
	return &queryService{
		links:     links,
		resolver:  resolver,
		content:   cfg.Content,
		indexing:  cfg.Indexing,
		queue:     cfg.Queue,
		lock:      cfg.Lock,
		retrieval: cfg.Retrieval,
		lockTTL:   lockTTL,
		logger:    logger,
	}
}

// Query resolves, ensures freshness, then answers from the current handle.
func (s *queryService) Query(ctx context.Context, req domain.QueryRequest) *domain.QueryResponse {
	logger := s.logger.With("query", req.Query)
	if req.UserID != "" {
		logger = logger.With("user_id", req.UserID)
	}

	if res := s.Resolve(req.Query); res.Found() {
		logger.Info("query resolved", "url", res.URL, "key", res.Key, "tier", res.Tier)
		s.ensureFresh(ctx, res.URL, logger)
	}

	handle, readiness := s.retrieval.Current()
	if readiness != domain.ReadinessReady || handle == nil {
		logger.Error("retrieval not ready", "readiness", readiness)
		return domain.NewMessageResponse(domain.MessageUnavailable)
	}

	text, chunks, err := handle.Answer(ctx, req.Query)
	if err != nil {
		logger.Error("query processing failed", "error", err)
		return domain.NewMessageResponse(domain.MessageAnswerFailed)
	}
	return domain.NewAnswerResponse(text, chunks)
}

// ensureFresh indexes an unseen page before answering, or queues a
// background refresh of a page that is already stored.
func (s *queryService) ensureFresh(ctx context.Context, url string, logger *slog.Logger) {
	slug := domain.Slugify(url)
	exists, err := s.content.Exists(ctx, slug)
	if err != nil {
		logger.Warn("content lookup failed", "slug", slug, "error", err)
		return
	}

	if !exists {
		logger.Info("page not stored, indexing before answering", "slug", slug)
		result, err := s.indexing.IndexPage(ctx, url)
		if err != nil {
			logger.Error("synchronous indexing failed", "error", err)
			return
		}
		logger.Info("synchronous indexing finished", "success", result.Success, "stage", result.Stage, "chunks", result.Chunks)
		return
	}

	if err := s.scheduleRefresh(ctx, url); err != nil && !errors.Is(err, domain.ErrAlreadyQueued) {
		logger.Warn("background refresh not scheduled", "error", err)
	}
}

// scheduleRefresh queues a refresh unless one for the same page is in flight.
func (s *queryService) scheduleRefresh(ctx context.Context, url string) error {
	if s.queue == nil {
		return nil
	}
	name := RefreshLockName(url)
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, name, s.lockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			s.logger.Debug("refresh already queued", "url", url)
			return domain.ErrAlreadyQueued
		}
	}

	task := domain.NewRefreshPageTask(url)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		if s.lock != nil {
			if relErr := s.lock.Release(context.WithoutCancel(ctx), name); relErr != nil {
				s.logger.Warn("failed to release refresh lock", "url", url, "error", relErr)
			}
		}
		return err
	}
	s.logger.Info("background refresh queued", "url", url, "task_id", task.ID)
	return nil
}

// Resolve returns the page a query would be routed to.
func (s *queryService) Resolve(query string) domain.Resolution {
	return s.resolver.Resolve(query, s.links)
}

// Links returns the link index entries in insertion order.
func (s *queryService) Links() []domain.LinkEntry {
	return s.links.Entries()
}

// Status reports retrieval readiness.
func (s *queryService) Status(ctx context.Context) domain.ReadinessStatus {
	return s.retrieval.Status()
}
