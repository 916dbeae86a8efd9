package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
	"github.com/satgraffin/satgraffin/internal/core/ports/driving"
	"github.com/satgraffin/satgraffin/internal/runtime"
	"github.com/satgraffin/satgraffin/internal/vectorindex"
)

// Ensure indexingService implements IndexingService
var _ driving.IndexingService = (*indexingService)(nil)

// IndexingConfig holds the dependencies of the indexing pipeline.
type IndexingConfig struct {
	Fetcher   driven.PageFetcher
	Content   driven.ContentStore
	Vectors   driven.VectorStore
	Splitter  driven.PostProcessorPipeline
	Embedder  driven.EmbeddingService // Optional: without it nothing can be indexed
	Model     driven.AnswerModel      // Optional: without it no handle can be published
	Retrieval *runtime.Retrieval
	Chain     domain.AnswerChain
	Homepage  string // Crawl start
	Logger    *slog.Logger
}

// indexingService fetches pages and merges their chunks into the vector index.
type indexingService struct {
	fetcher   driven.PageFetcher
	content   driven.ContentStore
	vectors   driven.VectorStore
	splitter  driven.PostProcessorPipeline
	embedder  driven.EmbeddingService
	model     driven.AnswerModel
	retrieval *runtime.Retrieval
	chain     domain.AnswerChain
	homepage  string
	logger    *slog.Logger

	// mergeMu serialises load, add, save and publish so concurrent
	// indexings cannot drop each other's chunks.
	mergeMu sync.Mutex
}

// NewIndexingService creates a new IndexingService
func NewIndexingService(cfg IndexingConfig) driving.IndexingService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chain := cfg.Chain
	if chain == "" {
		chain = domain.AnswerChainMapReduce
	}
	return &indexingService{
		fetcher:   cfg.Fetcher,
		content:   cfg.Content,
		vectors:   cfg.Vectors,
		splitter:  cfg.Splitter,
		embedder:  cfg.Embedder,
		model:     cfg.Model,
		retrieval: cfg.Retrieval,
		chain:     chain,
		homepage:  cfg.Homepage,
		logger:    logger,
	}
}

// IndexPage runs fetch, save, split, embed, merge and publish for one page.
func (s *indexingService) IndexPage(ctx context.Context, rawURL string) (*domain.IndexResult, error) {
	if err := validatePageURL(rawURL); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &domain.IndexResult{
		URL:   domain.CanonicalURL(rawURL),
		Slug:  domain.Slugify(rawURL),
		Stage: domain.IndexStageFetch,
	}
	logger := s.logger.With("url", result.URL, "slug", result.Slug)

	fail := func(stage domain.IndexStage, err error) (*domain.IndexResult, error) {
		result.Stage = stage
		result.Error = err.Error()
		result.Duration = time.Since(start)
		logger.Error("indexing failed", "stage", stage, "error", err)
		return result, nil
	}

	fetched, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !fetched.Found {
		return fail(domain.IndexStageFetch, fmt.Errorf("%w: %s", domain.ErrNoContent, fetched.Reason))
	}

	if err := s.content.Save(ctx, domain.NewPageRecord(rawURL, fetched.Text)); err != nil {
		return fail(domain.IndexStageSave, err)
	}

	stored, err := s.content.Load(ctx, result.Slug)
	if err != nil {
		return fail(domain.IndexStageSplit, err)
	}
	chunks := s.split(stored)
	if len(chunks) == 0 {
		return fail(domain.IndexStageSplit, domain.ErrNoContent)
	}

	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return fail(domain.IndexStageEmbed, err)
	}

	if stage, err := s.merge(ctx, func(idx *vectorindex.Index) error {
		return idx.Add(chunks, vectors)
	}, false); err != nil {
		return fail(stage, err)
	}

	result.Success = true
	result.Stage = domain.IndexStageDone
	result.Chunks = len(chunks)
	result.Duration = time.Since(start)
	logger.Info("page indexed", "chunks", result.Chunks, "duration", result.Duration)
	return result, nil
}

// Rebuild re-embeds every stored page into a fresh index.
func (s *indexingService) Rebuild(ctx context.Context) (*domain.RebuildResult, error) {
	start := time.Now()

	slugs, err := s.content.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}

	var (
		chunks []*domain.Chunk
		pages  int
	)
	for _, slug := range slugs {
		page, err := s.content.Load(ctx, slug)
		if err != nil {
			s.logger.Warn("skipping unreadable page", "slug", slug, "error", err)
			continue
		}
		pageChunks := s.split(page)
		if len(pageChunks) == 0 {
			continue
		}
		chunks = append(chunks, pageChunks...)
		pages++
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("rebuild: %w", domain.ErrNoContent)
	}
	s.logger.Info("rebuilding vector index", "pages", pages, "chunks", len(chunks))

	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("rebuild embed: %w", err)
	}

	if stage, err := s.merge(ctx, func(idx *vectorindex.Index) error {
		return idx.Add(chunks, vectors)
	}, true); err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", stage, err)
	}

	result := &domain.RebuildResult{Pages: pages, Chunks: len(chunks), Duration: time.Since(start)}
	s.logger.Info("vector index rebuilt", "pages", result.Pages, "chunks", result.Chunks, "duration", result.Duration)
	return result, nil
}

// Crawl walks same-site links breadth-first from the homepage, saving every
// page with enough text, then rebuilds. At most maxPages URLs are fetched.
func (s *indexingService) Crawl(ctx context.Context, maxPages int) (int, error) {
	if err := validatePageURL(s.homepage); err != nil {
		return 0, err
	}
	if maxPages <= 0 {
		return 0, fmt.Errorf("crawl: %w: max pages must be positive", domain.ErrInvalidInput)
	}

	start := domain.CanonicalURL(s.homepage)
	queue := []string{start}
	seen := map[string]bool{start: true}
	visited, saved := 0, 0

	for len(queue) > 0 && visited < maxPages {
		next := queue[0]
		queue = queue[1:]
		visited++

		fetched, err := s.fetcher.Fetch(ctx, next)
		if err != nil {
			return saved, err
		}
		for _, link := range fetched.Links {
			if !seen[link] {
				seen[link] = true
				queue = append(queue, link)
			}
		}
		if !fetched.Found {
			s.logger.Debug("skipping page", "url", next, "reason", fetched.Reason)
			continue
		}
		if err := s.content.Save(ctx, domain.NewPageRecord(next, fetched.Text)); err != nil {
			s.logger.Error("failed to save page", "url", next, "error", err)
			continue
		}
		saved++
	}
	s.logger.Info("crawl finished", "visited", visited, "saved", saved, "pending", len(queue))

	if saved == 0 {
		return 0, nil
	}
	if _, err := s.Rebuild(ctx); err != nil {
		return saved, err
	}
	return saved, nil
}

// Load publishes a handle from the persisted index. When that is not
// possible the reason is recorded on the retrieval holder and returned.
func (s *indexingService) Load(ctx context.Context) error {
	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	idx, err := s.vectors.Load(ctx)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, domain.ErrNotFound) {
			reason = "vector store is empty"
		}
		s.retrieval.Fail(reason)
		return fmt.Errorf("load vector index: %w", err)
	}
	rev, err := s.vectors.Revision(ctx)
	if err != nil {
		s.retrieval.Fail(err.Error())
		return fmt.Errorf("read revision: %w", err)
	}
	if err := s.publish(idx, rev); err != nil {
		s.retrieval.Fail(err.Error())
		return err
	}
	s.logger.Info("retrieval handle loaded", "chunks", idx.Len(), "revision", rev)
	return nil
}

// split re-reads page text into chunks with provenance from the stored record.
func (s *indexingService) split(page *domain.PageRecord) []*domain.Chunk {
	spans := s.splitter.Process(page.Text)
	chunks := make([]*domain.Chunk, 0, len(spans))
	for _, span := range spans {
		chunks = append(chunks, domain.NewChunk(page, span.Position, span.Content))
	}
	return chunks
}

func (s *indexingService) embed(ctx context.Context, chunks []*domain.Chunk) ([][]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrServiceUnavailable)
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}

// merge applies add to the persisted index (or a fresh one when replace is
// set or nothing is stored yet), saves it and publishes a handle over it.
func (s *indexingService) merge(ctx context.Context, add func(*vectorindex.Index) error, replace bool) (domain.IndexStage, error) {
	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	var idx *vectorindex.Index
	if !replace {
		loaded, err := s.vectors.Load(ctx)
		switch {
		case err == nil:
			idx = loaded
		case errors.Is(err, domain.ErrNotFound):
		default:
			return domain.IndexStageMerge, err
		}
	}
	if idx == nil {
		idx = vectorindex.New(s.embedder.Model(), 0)
	}

	if err := add(idx); err != nil {
		return domain.IndexStageMerge, err
	}
	if err := s.vectors.Save(ctx, idx); err != nil {
		return domain.IndexStageMerge, err
	}
	rev, err := s.vectors.Revision(ctx)
	if err != nil {
		return domain.IndexStageMerge, err
	}

	if err := s.publish(idx, rev); err != nil {
		return domain.IndexStagePublish, err
	}
	return domain.IndexStageDone, nil
}

func (s *indexingService) publish(idx *vectorindex.Index, rev int64) error {
	handle, err := runtime.NewRetrievalHandle(runtime.HandleConfig{
		Index:    idx,
		Embedder: s.embedder,
		Model:    s.model,
		Chain:    s.chain,
		Revision: rev,
	})
	if err != nil {
		return err
	}
	return s.retrieval.Publish(handle)
}

func validatePageURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute http(s) url", domain.ErrInvalidInput, raw)
	}
	return nil
}
