package driving

import (
	"context"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

// IndexingService fetches pages and merges them into the vector index
type IndexingService interface {
	// IndexPage fetches url, stores its text, embeds its chunks, merges them
	// into the persisted index and publishes a new retrieval handle.
	// Failures are reported in the result; the error is reserved for an
	// invalid url or a cancelled context.
	IndexPage(ctx context.Context, url string) (*domain.IndexResult, error)

	// Rebuild re-embeds every page in the content store into a fresh index
	Rebuild(ctx context.Context) (*domain.RebuildResult, error)

	// Crawl fetches up to maxPages pages breadth-first from the homepage
	// into the content store, then rebuilds. Returns the number of pages saved.
	Crawl(ctx context.Context, maxPages int) (int, error)

	// Load publishes a handle from the persisted index, or records why it cannot
	Load(ctx context.Context) error
}
