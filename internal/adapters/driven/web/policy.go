package web

import (
	"net/url"
	"strings"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// DefaultDisallowedExtensions are binary or document links never followed.
var DefaultDisallowedExtensions = []string{
	"pdf", "jpg", "jpeg", "png", "gif", "svg", "zip", "ppt", "pptx", "xls", "xlsx", "doc", "docx",
}

// LinkPolicy decides which discovered links are worth keeping.
type LinkPolicy struct {
	allowedHosts map[string]bool
	disallowed   map[string]bool
}

// NewLinkPolicy allows http(s) links on the given hosts whose extension
// is not in DefaultDisallowedExtensions.
func NewLinkPolicy(allowedHosts ...string) *LinkPolicy {
	p := &LinkPolicy{
		allowedHosts: make(map[string]bool, len(allowedHosts)),
		disallowed:   make(map[string]bool, len(DefaultDisallowedExtensions)),
	}
	for _, h := range allowedHosts {
		p.allowedHosts[strings.ToLower(h)] = true
	}
	for _, ext := range DefaultDisallowedExtensions {
		p.disallowed[ext] = true
	}
	return p
}

// NewLinkPolicyForHomepage allows links on the homepage's host only.
func NewLinkPolicyForHomepage(homepage string) (*LinkPolicy, error) {
	u, err := url.Parse(homepage)
	if err != nil {
		return nil, err
	}
	return NewLinkPolicy(u.Host), nil
}

// Allow reports whether an absolute URL should be followed.
func (p *LinkPolicy) Allow(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !p.allowedHosts[strings.ToLower(u.Host)] {
		return false
	}
	ext := u.Path
	if i := strings.LastIndex(ext, "."); i >= 0 {
		ext = ext[i+1:]
	}
	return !p.disallowed[strings.ToLower(ext)]
}

// Filter returns the canonical form of every allowed anchor, de-duplicated
// in first-seen order.
func (p *LinkPolicy) Filter(anchors []driven.Anchor) []string {
	links := make([]string, 0, len(anchors))
	seen := make(map[string]bool)
	for _, a := range anchors {
		if !p.Allow(a.Href) {
			continue
		}
		c := domain.CanonicalURL(a.Href)
		if !seen[c] {
			seen[c] = true
			links = append(links, c)
		}
	}
	return links
}
