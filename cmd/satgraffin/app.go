package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/satgraffin/satgraffin/internal/adapters/driven/ai"
	"github.com/satgraffin/satgraffin/internal/adapters/driven/auth"
	"github.com/satgraffin/satgraffin/internal/adapters/driven/filesystem"
	"github.com/satgraffin/satgraffin/internal/adapters/driven/memory"
	"github.com/satgraffin/satgraffin/internal/adapters/driven/postgres"
	postgresqueue "github.com/satgraffin/satgraffin/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/satgraffin/satgraffin/internal/adapters/driven/queue/redis"
	redisadapter "github.com/satgraffin/satgraffin/internal/adapters/driven/redis"
	"github.com/satgraffin/satgraffin/internal/adapters/driven/sqlite"
	"github.com/satgraffin/satgraffin/internal/adapters/driven/web"
	httpserver "github.com/satgraffin/satgraffin/internal/adapters/driving/http"
	"github.com/satgraffin/satgraffin/internal/config"
	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
	"github.com/satgraffin/satgraffin/internal/core/ports/driving"
	"github.com/satgraffin/satgraffin/internal/core/services"
	"github.com/satgraffin/satgraffin/internal/normalisers"
	"github.com/satgraffin/satgraffin/internal/postprocessors"
	"github.com/satgraffin/satgraffin/internal/runtime"
)

// refreshLockOwner is shared by every process so a worker can release a
// refresh lock taken by the API process that queued the task.
const refreshLockOwner = "satgraffin-refresh"

// app holds the wired services for one process.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	fetcher   *web.Fetcher
	content   *filesystem.ContentStore
	vectors   *sqlite.VectorStore
	embedder  driven.EmbeddingService
	model     driven.AnswerModel
	retrieval *runtime.Retrieval
	indexing  driving.IndexingService

	queue driven.TaskQueue
	lock  driven.DistributedLock

	checks  map[string]httpserver.Pinger
	closers []func() error
}

// newApp builds storage, AI services and the indexing pipeline, then loads
// the persisted index. A missing index or model leaves the service degraded.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		retrieval: runtime.NewRetrieval(),
		checks:    make(map[string]httpserver.Pinger),
	}

	policy, err := web.NewLinkPolicyForHomepage(cfg.Site.HomepageURL)
	if err != nil {
		return nil, fmt.Errorf("homepage: %w", err)
	}
	rate := web.DefaultRateLimit
	if cfg.Site.RequestsPerSecond > 0 {
		rate.RequestsPerSecond = cfg.Site.RequestsPerSecond
	}
	a.fetcher = web.NewFetcher(web.FetcherConfig{
		Normalisers: normalisers.DefaultRegistry(),
		Policy:      policy,
		RateLimit:   rate,
		MinWords:    cfg.Site.MinWords,
		UserAgent:   cfg.Site.UserAgent,
		Logger:      logger,
	})

	a.content, err = filesystem.NewContentStore(cfg.Storage.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("content store: %w", err)
	}

	factory := ai.NewFactory()
	settings := cfg.AISettings()
	a.embedder, err = factory.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("embedding service unavailable", "provider", settings.Embedding.Provider, "error", err)
		a.embedder = nil
	}
	if a.embedder != nil {
		a.closers = append(a.closers, a.embedder.Close)
		a.checks["embedding"] = pingFunc(a.embedder.HealthCheck)
	}
	a.model, err = factory.CreateAnswerModel(&settings.LLM)
	if err != nil {
		logger.Warn("answer model unavailable", "provider", settings.LLM.Provider, "error", err)
		a.model = nil
	}
	if a.model != nil {
		a.closers = append(a.closers, a.model.Close)
		a.checks["llm"] = a.model
	}

	a.vectors, err = sqlite.NewVectorStore(cfg.Storage.VectorDir, cfg.Embedding.Model)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("vector store: %w", err)
	}
	a.closers = append(a.closers, a.vectors.Close)

	split := postprocessors.DefaultSplitConfig()
	split.ChunkSize = cfg.Chunking.Size
	split.Overlap = cfg.Chunking.Overlap

	a.indexing = services.NewIndexingService(services.IndexingConfig{
		Fetcher:   a.fetcher,
		Content:   a.content,
		Vectors:   a.vectors,
		Splitter:  postprocessors.NewSplitPipeline(split),
		Embedder:  a.embedder,
		Model:     a.model,
		Retrieval: a.retrieval,
		Chain:     domain.AnswerChain(cfg.LLM.Chain),
		Homepage:  cfg.Site.HomepageURL,
		Logger:    logger,
	})

	if err := a.indexing.Load(ctx); err != nil {
		logger.Warn("starting degraded", "error", err)
	}
	return a, nil
}

// connectBackends selects the shared lock and task queue: Redis, then
// Postgres, then in-process.
func (a *app) connectBackends(ctx context.Context, consumer string) error {
	switch {
	case a.cfg.Backends.RedisURL != "":
		opts, err := goredis.ParseURL(a.cfg.Backends.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("redis: %w", err)
		}
		queue, err := redisqueue.NewQueue(ctx, client, consumer)
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("redis queue: %w", err)
		}
		a.queue = queue
		a.lock = redisadapter.NewSharedLock(client, refreshLockOwner)
		a.closers = append(a.closers, client.Close)
		a.logger.Info("using redis backends")

	case a.cfg.Backends.DatabaseURL != "":
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(a.cfg.Backends.DatabaseURL))
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := db.InitSchema(ctx); err != nil {
			_ = db.Close()
			return fmt.Errorf("postgres schema: %w", err)
		}
		a.queue = postgresqueue.NewQueue(db.DB)
		a.lock = postgres.NewLeaseLock(db, refreshLockOwner)
		a.closers = append(a.closers, db.Close)
		a.checks["postgres"] = db
		a.logger.Info("using postgres backends")

	default:
		a.queue = memory.NewQueue()
		a.lock = memory.NewLock()
		a.logger.Info("using in-process backends")
	}
	a.closers = append(a.closers, a.queue.Close)
	a.checks["queue"] = a.queue
	return nil
}

// queryService builds the link index and the orchestrator. Building the
// index fetches the homepage and sitemaps, so only commands that answer
// questions call it.
func (a *app) queryService(ctx context.Context) driving.QueryService {
	links := services.NewLinkIndexBuilder(a.cfg.Site.HomepageURL, a.fetcher, a.fetcher, a.logger).Build(ctx)
	return services.NewQueryService(services.QueryConfig{
		Links:     links,
		Content:   a.content,
		Indexing:  a.indexing,
		Queue:     a.queue,
		Lock:      a.lock,
		Retrieval: a.retrieval,
		LockTTL:   a.cfg.LockTTL(),
		Logger:    a.logger,
	})
}

// authService returns nil when no admin password is configured.
func (a *app) authService() driving.AuthService {
	if !a.cfg.AdminEnabled() {
		return nil
	}
	if a.cfg.Admin.JWTSecret == config.DefaultJWTSecret {
		a.logger.Warn("admin API uses the default JWT secret; set JWT_SECRET")
	}
	return services.NewAuthService(a.cfg.Admin.PasswordHash, auth.NewAdapter(a.cfg.Admin.JWTSecret))
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error during shutdown", "error", err)
	}
}

// pingFunc adapts a health check function to httpserver.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// hostname names this process as a queue consumer.
func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return fmt.Sprintf("satgraffin-%d", time.Now().UnixNano())
	}
	return name
}
