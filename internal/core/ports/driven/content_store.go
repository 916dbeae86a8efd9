package driven

import (
	"context"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

// ContentStore persists cleaned page text, one artifact per slug.
type ContentStore interface {
	// Save writes the page under its slug, replacing any previous version.
	Save(ctx context.Context, page *domain.PageRecord) error

	// Load reads a page by slug. Returns domain.ErrNotFound if absent.
	Load(ctx context.Context, slug string) (*domain.PageRecord, error)

	// Exists reports whether an artifact for slug is present.
	Exists(ctx context.Context, slug string) (bool, error)

	// List returns every stored slug in lexical order.
	List(ctx context.Context) ([]string, error)
}
