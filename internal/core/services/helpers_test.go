package services

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven/mocks"
	"github.com/satgraffin/satgraffin/internal/core/ports/driving"
	"github.com/satgraffin/satgraffin/internal/postprocessors"
	"github.com/satgraffin/satgraffin/internal/runtime"
)

const testHomepage = "https://mosdac.gov.in/"

// testEnv wires the indexing and query services to in-memory mocks.
type testEnv struct {
	fetcher   *mocks.MockPageFetcher
	content   *mocks.MockContentStore
	vectors   *mocks.MockVectorStore
	embedder  *mocks.MockEmbeddingService
	model     *mocks.MockAnswerModel
	queue     *mocks.MockTaskQueue
	lock      *mocks.MockDistributedLock
	retrieval *runtime.Retrieval
	links     *domain.LinkIndex
	indexing  driving.IndexingService
	query     driving.QueryService
}

type envOption func(*testEnv, *IndexingConfig)

func withoutModel() envOption {
	return func(_ *testEnv, cfg *IndexingConfig) { cfg.Model = nil }
}

func withoutEmbedder() envOption {
	return func(_ *testEnv, cfg *IndexingConfig) { cfg.Embedder = nil }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	return buildEnv(opts...)
}

func buildEnv(opts ...envOption) *testEnv {
	logger := discardLogger()
	env := &testEnv{
		fetcher:   mocks.NewMockPageFetcher(),
		content:   mocks.NewMockContentStore(),
		vectors:   mocks.NewMockVectorStore(),
		embedder:  mocks.NewMockEmbeddingService(),
		model:     mocks.NewMockAnswerModel("generated answer"),
		queue:     mocks.NewMockTaskQueue(),
		lock:      mocks.NewMockDistributedLock(),
		retrieval: runtime.NewRetrieval(),
		links:     domain.NewLinkIndex(),
	}

	cfg := IndexingConfig{
		Fetcher:   env.fetcher,
		Content:   env.content,
		Vectors:   env.vectors,
		Splitter:  postprocessors.DefaultPipeline(),
		Embedder:  env.embedder,
		Model:     env.model,
		Retrieval: env.retrieval,
		Chain:     domain.AnswerChainStuff,
		Homepage:  testHomepage,
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(env, &cfg)
	}
	env.indexing = NewIndexingService(cfg)
	env.query = NewQueryService(QueryConfig{
		Links:     env.links,
		Content:   env.content,
		Indexing:  env.indexing,
		Queue:     env.queue,
		Lock:      env.lock,
		Retrieval: env.retrieval,
		Logger:    logger,
	})
	return env
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pageText returns n words mentioning topic, long enough to split into several chunks.
func pageText(topic string, n int) string {
	words := make([]string, n)
	for i := range words {
		if i%5 == 0 {
			words[i] = topic
		} else {
			words[i] = fmt.Sprintf("word%d", i)
		}
	}
	return strings.Join(words, " ")
}
