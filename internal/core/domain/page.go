package domain

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

// maxSlugPathLength bounds the sanitised path portion of a slug.
const maxSlugPathLength = 120

// SlugExtension is appended to every slug.
const SlugExtension = ".txt"

var unsafeSlugChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// PageRecord is one fetched page, persisted as a single artifact keyed by slug.
type PageRecord struct {
	URL       string    `json:"url"`
	Slug      string    `json:"slug"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewPageRecord creates a record for url with its derived slug.
func NewPageRecord(rawURL, text string) *PageRecord {
	return &PageRecord{
		URL:       CanonicalURL(rawURL),
		Slug:      Slugify(rawURL),
		Text:      text,
		FetchedAt: time.Now(),
	}
}

// Mission returns the topic key for the page, which is its slug stem.
func (p *PageRecord) Mission() string {
	return SlugStem(p.Slug)
}

// FetchReason explains why a fetch produced no indexable text.
type FetchReason string

const (
	FetchReasonOK                  FetchReason = "ok"
	FetchReasonFailed              FetchReason = "fetch_failed"
	FetchReasonInsufficientContent FetchReason = "insufficient_content"
)

// FetchResult is the outcome of fetching a single page.
// Links are returned even when Found is false.
type FetchResult struct {
	URL    string      `json:"url"`
	Text   string      `json:"text,omitempty"`
	Found  bool        `json:"found"`
	Links  []string    `json:"links"`
	Reason FetchReason `json:"reason"`
}

// CanonicalURL strips the fragment and query and trims trailing slashes
// from the path ("/" when nothing is left). Unparseable input is returned as-is.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = ""
	u.ForceQuery = false

	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		p = "/"
	}
	u.Path = p
	if u.RawPath != "" {
		rp := strings.TrimRight(u.RawPath, "/")
		if rp == "" {
			rp = "/"
		}
		u.RawPath = rp
	}
	return u.String()
}

// Slugify derives the content-store key for a URL:
// <host with dots as underscores>_<sanitised path>.txt
// The raw path is used as written, without re-escaping.
func Slugify(raw string) string {
	host, p := splitNetlocPath(strings.TrimSpace(raw))

	p = strings.Trim(p, "/")
	if p == "" {
		p = "home"
	}
	safe := []rune(unsafeSlugChars.ReplaceAllString(p, "_"))
	if len(safe) > maxSlugPathLength {
		safe = safe[:maxSlugPathLength]
	}
	if len(safe) == 0 {
		safe = []rune("page")
	}
	return strings.ReplaceAll(host, ".", "_") + "_" + string(safe) + SlugExtension
}

// splitNetlocPath returns the authority and raw path of a URL string,
// dropping any query or fragment.
func splitNetlocPath(raw string) (string, string) {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	i := strings.Index(raw, "://")
	if i < 0 {
		return "", raw
	}
	rest := raw[i+3:]
	j := strings.Index(rest, "/")
	if j < 0 {
		return rest, ""
	}
	return rest[:j], rest[j:]
}

// SlugStem returns the slug without its extension.
func SlugStem(slug string) string {
	return strings.TrimSuffix(path.Base(slug), path.Ext(slug))
}

// IndexStage names the indexing step a result stopped at.
type IndexStage string

const (
	IndexStageFetch   IndexStage = "fetch"
	IndexStageSave    IndexStage = "save"
	IndexStageSplit   IndexStage = "split"
	IndexStageEmbed   IndexStage = "embed"
	IndexStageMerge   IndexStage = "merge"
	IndexStagePublish IndexStage = "publish"
	IndexStageDone    IndexStage = "done"
)

// IndexResult reports the outcome of indexing one page.
type IndexResult struct {
	URL      string        `json:"url"`
	Slug     string        `json:"slug"`
	Success  bool          `json:"success"`
	Stage    IndexStage    `json:"stage"`
	Chunks   int           `json:"chunks"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RebuildResult reports a full rebuild from the content store.
type RebuildResult struct {
	Pages    int           `json:"pages"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration"`
}
