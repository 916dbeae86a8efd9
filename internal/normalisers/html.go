package normalisers

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Normaliser = (*HTMLNormaliser)(nil)

// DefaultStrippedElements are removed before text is extracted.
var DefaultStrippedElements = []atom.Atom{
	atom.Script, atom.Style, atom.Header, atom.Footer, atom.Nav, atom.Aside,
}

// HTMLNormaliser extracts visible text and anchors from HTML.
// Anchors are collected from the whole document, including stripped
// elements, so navigation links still reach the link index.
type HTMLNormaliser struct {
	stripped map[atom.Atom]bool
}

// NewHTMLNormaliser creates a normaliser that strips DefaultStrippedElements.
func NewHTMLNormaliser() *HTMLNormaliser {
	return NewHTMLNormaliserStripping(DefaultStrippedElements...)
}

// NewHTMLNormaliserStripping creates a normaliser that strips the given elements.
func NewHTMLNormaliserStripping(elements ...atom.Atom) *HTMLNormaliser {
	stripped := make(map[atom.Atom]bool, len(elements))
	for _, a := range elements {
		stripped[a] = true
	}
	return &HTMLNormaliser{stripped: stripped}
}

// Normalise parses content and returns its text and anchors.
func (n *HTMLNormaliser) Normalise(content []byte, baseURL string) (*driven.NormalisedPage, error) {
	doc, err := html.ParseWithOptions(bytes.NewReader(content), html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	var texts []string
	page := &driven.NormalisedPage{}

	var walk func(node *html.Node, hidden bool)
	walk = func(node *html.Node, hidden bool) {
		switch node.Type {
		case html.TextNode:
			if !hidden {
				if t := strings.TrimSpace(node.Data); t != "" {
					texts = append(texts, t)
				}
			}
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			if n.stripped[node.DataAtom] {
				hidden = true
			}
			if node.DataAtom == atom.A {
				if a, ok := anchor(node, base); ok {
					page.Anchors = append(page.Anchors, a)
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c, hidden)
		}
	}
	walk(doc, false)

	page.Text = collapseWhitespace(strings.Join(texts, " "))
	return page, nil
}

func (n *HTMLNormaliser) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (n *HTMLNormaliser) Priority() int {
	return 50
}

// anchor builds an Anchor from an <a> element with an href.
// The text is every descendant string, trimmed and concatenated.
func anchor(node *html.Node, base *url.URL) (driven.Anchor, bool) {
	var href string
	found := false
	for _, attr := range node.Attr {
		if attr.Key == "href" {
			href, found = strings.TrimSpace(attr.Val), true
			break
		}
	}
	if !found {
		return driven.Anchor{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return driven.Anchor{}, false
	}

	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(c.Data))
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			collect(cc)
		}
	}
	collect(node)

	return driven.Anchor{Text: sb.String(), Href: base.ResolveReference(ref).String()}, true
}
