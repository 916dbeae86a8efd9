package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

const (
	// fuzzyCutoff is the lowest ratio the fuzzy tier accepts.
	fuzzyCutoff = 0.4

	// minKeywordLength excludes short tokens from keyword matching.
	minKeywordLength = 4
)

var (
	missionPattern = regexp.MustCompile(`([a-zA-Z]+)[\s-]*(\d+)([a-zA-Z]*)`)
	wordPattern    = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// Resolver maps a free-text query to at most one page in a link index.
// It is deterministic and has no side effects.
type Resolver struct{}

// NewResolver creates a resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve tries, in order, the mission pattern, fuzzy key similarity and
// keyword containment. The first tier that matches wins.
func (r *Resolver) Resolve(query string, index *domain.LinkIndex) domain.Resolution {
	entries := index.Entries()
	if len(entries) == 0 {
		return domain.Resolution{Tier: domain.ResolveTierNone}
	}

	q := strings.ToLower(query)
	lowerKeys := make([]string, len(entries))
	for i, e := range entries {
		lowerKeys[i] = strings.ToLower(e.Key)
	}

	if i, ok := matchPattern(q, lowerKeys); ok {
		return resolution(entries[i], domain.ResolveTierPattern)
	}
	if i, ok := matchFuzzy(q, lowerKeys); ok {
		return resolution(entries[i], domain.ResolveTierFuzzy)
	}
	if i, ok := matchKeyword(q, lowerKeys); ok {
		return resolution(entries[i], domain.ResolveTierKeyword)
	}
	return domain.Resolution{Tier: domain.ResolveTierNone}
}

func resolution(e domain.LinkEntry, tier domain.ResolveTier) domain.Resolution {
	return domain.Resolution{URL: e.Target, Key: e.Key, Tier: tier}
}

// matchPattern looks for "<word> <number>" in the query and compares
// "word-numberSuffix" then "word-number" against the keys.
func matchPattern(q string, lowerKeys []string) (int, bool) {
	m := missionPattern.FindStringSubmatch(q)
	if m == nil {
		return 0, false
	}

	candidates := []string{fmt.Sprintf("%s-%s", m[1], m[2])}
	if m[3] != "" {
		candidates = append([]string{fmt.Sprintf("%s-%s%s", m[1], m[2], m[3])}, candidates...)
	}
	for _, c := range candidates {
		if i := indexOf(lowerKeys, c); i >= 0 {
			return i, true
		}
	}
	return 0, false
}

func matchFuzzy(q string, lowerKeys []string) (int, bool) {
	best := closeMatches(q, lowerKeys, 1, fuzzyCutoff)
	if len(best) == 0 {
		return 0, false
	}
	// The first key with the winning text, not necessarily the scored one.
	return indexOf(lowerKeys, best[0].word), true
}

// matchKeyword returns the first key, in index order, that contains any
// query token of at least minKeywordLength characters.
func matchKeyword(q string, lowerKeys []string) (int, bool) {
	var tokens []string
	for _, tok := range wordPattern.FindAllString(q, -1) {
		if utf8.RuneCountInString(tok) >= minKeywordLength {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return 0, false
	}

	for i, key := range lowerKeys {
		for _, tok := range tokens {
			if strings.Contains(key, tok) {
				return i, true
			}
		}
	}
	return 0, false
}

func indexOf(keys []string, want string) int {
	for i, k := range keys {
		if k == want {
			return i
		}
	}
	return -1
}
