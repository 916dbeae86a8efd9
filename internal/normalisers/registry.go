package normalisers

import (
	"mime"
	"sort"
	"strings"
	"sync"

	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry picks a normaliser for a fetched page's Content-Type.
// Normalisers are kept highest priority first, so the first match wins.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds normaliser. Among equal priorities the earlier one wins.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, normaliser)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// Get returns the normaliser for contentType, or nil when the page
// cannot be turned into text.
func (r *Registry) Get(contentType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.normalisers {
		if matchesMIMEType(n.SupportedTypes(), contentType) {
			return n
		}
	}
	return nil
}

// List returns the sorted set of supported MIME types.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, n := range r.normalisers {
		for _, t := range n.SupportedTypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// matchesMIMEType reports whether contentType, parameters ignored, is one
// of supported. "type/*" and "*/*" wildcards are honoured.
func matchesMIMEType(supported []string, contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	}
	major, _, _ := strings.Cut(mediaType, "/")

	for _, s := range supported {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == mediaType || s == "*/*" || s == major+"/*" {
			return true
		}
	}
	return false
}

// DefaultRegistry creates a registry with the HTML and plaintext normalisers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PlaintextNormaliser{})
	r.Register(NewHTMLNormaliser())
	return r
}

// PlaintextNormaliser handles plain text content.
type PlaintextNormaliser struct{}

// Normalise collapses whitespace. Plain text has no anchors.
func (n *PlaintextNormaliser) Normalise(content []byte, baseURL string) (*driven.NormalisedPage, error) {
	return &driven.NormalisedPage{Text: collapseWhitespace(string(content))}, nil
}

func (n *PlaintextNormaliser) SupportedTypes() []string {
	return []string{"text/plain"}
}

func (n *PlaintextNormaliser) Priority() int {
	return 10
}

// collapseWhitespace replaces every run of whitespace with one space and trims the ends.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
