package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// ErrMockFetch is returned by Anchors/Locations when a URL is marked failing.
var ErrMockFetch = errors.New("mock fetch failure")

// MockPageFetcher serves canned pages keyed by URL.
// Unknown URLs behave like a failed fetch.
type MockPageFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	links    map[string][]string
	anchors  map[string][]driven.Anchor
	sitemaps map[string][]string
	failing  map[string]bool
	fetches  map[string]int

	// MinWords applies the minimum-content policy when positive.
	MinWords int
}

// NewMockPageFetcher creates an empty fetcher.
func NewMockPageFetcher() *MockPageFetcher {
	return &MockPageFetcher{
		pages:    make(map[string]string),
		links:    make(map[string][]string),
		anchors:  make(map[string][]driven.Anchor),
		sitemaps: make(map[string][]string),
		failing:  make(map[string]bool),
		fetches:  make(map[string]int),
	}
}

// SetPage registers the text served for url.
func (m *MockPageFetcher) SetPage(url, text string, links ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[url] = text
	m.links[url] = links
}

// SetAnchors registers the anchors served for url.
func (m *MockPageFetcher) SetAnchors(url string, anchors ...driven.Anchor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchors[url] = anchors
}

// SetSitemap registers the locations served for a sitemap url.
func (m *MockPageFetcher) SetSitemap(url string, locs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sitemaps[url] = locs
}

// SetFailing marks url as unreachable.
func (m *MockPageFetcher) SetFailing(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[url] = true
}

func (m *MockPageFetcher) Fetch(ctx context.Context, url string) (*domain.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[url]++

	text, ok := m.pages[url]
	if !ok || m.failing[url] {
		return &domain.FetchResult{URL: url, Links: []string{}, Reason: domain.FetchReasonFailed}, nil
	}
	res := &domain.FetchResult{URL: url, Links: append([]string{}, m.links[url]...)}
	if m.MinWords > 0 && len(splitWords(text)) < m.MinWords {
		res.Reason = domain.FetchReasonInsufficientContent
		return res, nil
	}
	res.Text = text
	res.Found = true
	res.Reason = domain.FetchReasonOK
	return res, nil
}

func (m *MockPageFetcher) Anchors(ctx context.Context, url string) ([]driven.Anchor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[url] {
		return nil, ErrMockFetch
	}
	return append([]driven.Anchor{}, m.anchors[url]...), nil
}

func (m *MockPageFetcher) Locations(ctx context.Context, sitemapURL string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[sitemapURL] {
		return nil, ErrMockFetch
	}
	locs, ok := m.sitemaps[sitemapURL]
	if !ok {
		return nil, ErrMockFetch
	}
	return append([]string{}, locs...), nil
}

// FetchCount returns how many times url was fetched.
func (m *MockPageFetcher) FetchCount(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[url]
}

func splitWords(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}
