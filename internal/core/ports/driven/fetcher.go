package driven

import (
	"context"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

// PageFetcher retrieves a page and extracts its text and outbound links.
// Network failures and non-success responses are reported through
// FetchResult.Found and Reason, never as an error.
type PageFetcher interface {
	// Fetch retrieves url. The error is reserved for cancellation of ctx.
	Fetch(ctx context.Context, url string) (*domain.FetchResult, error)

	// Anchors retrieves url and returns every anchor on it, unfiltered.
	// Used to seed the link index from the homepage.
	Anchors(ctx context.Context, url string) ([]Anchor, error)
}

// SitemapFetcher retrieves the location entries of a sitemap document.
type SitemapFetcher interface {
	// Locations returns every <loc> value in document order.
	Locations(ctx context.Context, sitemapURL string) ([]string, error)
}
