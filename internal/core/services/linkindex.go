package services

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// LinkIndexBuilder seeds the link index from the homepage and its sitemap.
type LinkIndexBuilder struct {
	homepage string
	pages    driven.PageFetcher
	sitemaps driven.SitemapFetcher
	logger   *slog.Logger
}

// NewLinkIndexBuilder creates a builder for homepage.
func NewLinkIndexBuilder(homepage string, pages driven.PageFetcher, sitemaps driven.SitemapFetcher, logger *slog.Logger) *LinkIndexBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkIndexBuilder{
		homepage: homepage,
		pages:    pages,
		sitemaps: sitemaps,
		logger:   logger,
	}
}

// Build collects homepage anchors, then sitemap locations, into a new index.
// Both sources are best-effort; a failure leaves whatever was collected.
func (b *LinkIndexBuilder) Build(ctx context.Context) *domain.LinkIndex {
	index := domain.NewLinkIndex()

	anchors, err := b.pages.Anchors(ctx, b.homepage)
	if err != nil {
		b.logger.Warn("failed to build homepage links", "url", b.homepage, "error", err)
	} else {
		for _, a := range anchors {
			text := strings.TrimSpace(a.Text)
			if text == "" || a.Href == "" {
				continue
			}
			index.Set(text, a.Href)
		}
		b.logger.Info("homepage link index built", "entries", index.Len())
	}

	sitemapURL, err := SitemapURL(b.homepage)
	if err != nil {
		b.logger.Warn("invalid homepage url", "url", b.homepage, "error", err)
		return index
	}
	locs, err := b.sitemaps.Locations(ctx, sitemapURL)
	if err != nil {
		b.logger.Warn("failed to fetch sitemap", "url", sitemapURL, "error", err)
		return index
	}
	for _, loc := range locs {
		index.Set(sitemapKey(loc), loc)
	}
	b.logger.Info("sitemap indexed", "locations", len(locs), "entries", index.Len())

	return index
}

// SitemapURL resolves sitemap.xml against homepage.
func SitemapURL(homepage string) (string, error) {
	base, err := url.Parse(homepage)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(&url.URL{Path: "sitemap.xml"}).String(), nil
}

// sitemapKey is the last path segment of loc, or loc itself when that is empty.
func sitemapKey(loc string) string {
	if key := loc[strings.LastIndex(loc, "/")+1:]; key != "" {
		return key
	}
	return loc
}
