package services

import (
	"sort"

	"github.com/pmezard/go-difflib/difflib"
)

// closeMatch is a candidate scored against the query.
type closeMatch struct {
	score float64
	word  string
	index int
}

// closeMatches returns up to n of possibilities whose similarity ratio to
// word is at least cutoff, best first. Equal ratios prefer the
// lexically larger candidate. Ratios are computed per character.
func closeMatches(word string, possibilities []string, n int, cutoff float64) []closeMatch {
	if n <= 0 || cutoff < 0 || cutoff > 1 {
		return nil
	}

	m := difflib.NewMatcher(nil, nil)
	m.SetSeq2(characters(word))

	var result []closeMatch
	for i, p := range possibilities {
		m.SetSeq1(characters(p))
		if m.RealQuickRatio() >= cutoff && m.QuickRatio() >= cutoff {
			if r := m.Ratio(); r >= cutoff {
				result = append(result, closeMatch{score: r, word: p, index: i})
			}
		}
	}

	sort.SliceStable(result, func(a, b int) bool {
		if result[a].score != result[b].score {
			return result[a].score > result[b].score
		}
		return result[a].word > result[b].word
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// similarity returns the ratio between a and b in [0, 1].
func similarity(a, b string) float64 {
	return difflib.NewMatcher(characters(a), characters(b)).Ratio()
}

func characters(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
