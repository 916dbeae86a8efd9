package driven

import (
	"context"

	"github.com/satgraffin/satgraffin/internal/vectorindex"
)

// VectorStore persists the vector index.
// An index loaded from the store is a private copy: adding to it never
// affects another loaded copy or a published retrieval handle.
type VectorStore interface {
	// Load reads the persisted index. A store that has never been saved
	// returns domain.ErrNotFound. A store built with a different embedding
	// model returns domain.ErrModelMismatch.
	Load(ctx context.Context) (*vectorindex.Index, error)

	// Save replaces the persisted index with idx and bumps the revision.
	Save(ctx context.Context, idx *vectorindex.Index) error

	// Revision returns a counter that increases on every Save.
	Revision(ctx context.Context) (int64, error)

	// Close releases the underlying database.
	Close() error
}
