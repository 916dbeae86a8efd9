package web

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.PageFetcher    = (*Fetcher)(nil)
	_ driven.SitemapFetcher = (*Fetcher)(nil)
)

const (
	// DefaultPageTimeout bounds a single page fetch.
	DefaultPageTimeout = 15 * time.Second

	// DefaultIndexTimeout bounds homepage and sitemap fetches.
	DefaultIndexTimeout = 10 * time.Second

	// DefaultMinWords is the smallest page worth indexing.
	DefaultMinWords = 120

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 10 << 20

	defaultUserAgent = "satgraffin/1.0 (+https://mosdac.gov.in/)"
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	HTTPClient   *http.Client
	Normalisers  driven.NormaliserRegistry
	Policy       *LinkPolicy
	RateLimit    RateLimitConfig
	MinWords     int
	PageTimeout  time.Duration
	IndexTimeout time.Duration
	UserAgent    string
	Logger       *slog.Logger
}

// Fetcher retrieves pages over HTTP.
type Fetcher struct {
	client       *http.Client
	normalisers  driven.NormaliserRegistry
	policy       *LinkPolicy
	limiter      *RateLimiter
	minWords     int
	pageTimeout  time.Duration
	indexTimeout time.Duration
	userAgent    string
	logger       *slog.Logger
}

// NewFetcher creates a fetcher. Normalisers and Policy are required.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = DefaultMinWords
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = DefaultPageTimeout
	}
	if cfg.IndexTimeout <= 0 {
		cfg.IndexTimeout = DefaultIndexTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Fetcher{
		client:       cfg.HTTPClient,
		normalisers:  cfg.Normalisers,
		policy:       cfg.Policy,
		limiter:      NewRateLimiter(cfg.RateLimit),
		minWords:     cfg.MinWords,
		pageTimeout:  cfg.PageTimeout,
		indexTimeout: cfg.IndexTimeout,
		userAgent:    cfg.UserAgent,
		logger:       cfg.Logger,
	}
}

// Fetch retrieves url and extracts its text and outbound links.
// Fetch failures are logged and reported in the result.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.FetchResult, error) {
	res := &domain.FetchResult{URL: url, Links: []string{}, Reason: domain.FetchReasonFailed}

	page, err := f.get(ctx, url, f.pageTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("fetch failed", "url", url, "error", err)
		return res, nil
	}

	res.Links = f.policy.Filter(page.Anchors)
	if words := len(strings.Fields(page.Text)); words < f.minWords {
		f.logger.Info("skipping page with too little text", "url", url, "words", words, "min_words", f.minWords)
		res.Reason = domain.FetchReasonInsufficientContent
		return res, nil
	}

	res.Text = page.Text
	res.Found = true
	res.Reason = domain.FetchReasonOK
	return res, nil
}

// Anchors retrieves url and returns every anchor on it, unfiltered.
func (f *Fetcher) Anchors(ctx context.Context, url string) ([]driven.Anchor, error) {
	page, err := f.get(ctx, url, f.indexTimeout)
	if err != nil {
		return nil, err
	}
	return page.Anchors, nil
}

// Locations returns every <loc> element of a sitemap, in any namespace.
func (f *Fetcher) Locations(ctx context.Context, sitemapURL string) ([]string, error) {
	body, _, err := f.download(ctx, sitemapURL, f.indexTimeout)
	if err != nil {
		return nil, err
	}
	return parseSitemap(body)
}

func (f *Fetcher) get(ctx context.Context, url string, timeout time.Duration) (*driven.NormalisedPage, error) {
	body, contentType, err := f.download(ctx, url, timeout)
	if err != nil {
		return nil, err
	}

	n := f.normalisers.Get(contentType)
	if n == nil {
		n = f.normalisers.Get("text/html")
	}
	if n == nil {
		return nil, fmt.Errorf("no normaliser for %q", contentType)
	}
	text, err := toUTF8(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return n.Normalise(text, url)
}

// toUTF8 decodes body using the charset named by contentType, a byte order
// mark or a <meta> declaration, in that order of precedence.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// download performs one rate-limited GET bounded by timeout.
func (f *Fetcher) download(ctx context.Context, url string, timeout time.Duration) ([]byte, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		f.limiter.Backoff(retryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", url, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func retryAfter(v string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// parseSitemap extracts <loc> values. A malformed document yields no
// locations at all, even if some were readable before the error.
func parseSitemap(body []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var locs []string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse sitemap: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "loc" {
			continue
		}
		var loc string
		if err := dec.DecodeElement(&loc, &start); err != nil {
			return nil, fmt.Errorf("parse sitemap: %w", err)
		}
		if loc = strings.TrimSpace(loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("parse sitemap: empty document")
	}
	return locs, nil
}
