// Package vectorindex holds chunk embeddings in memory and answers
// similarity and maximal-marginal-relevance queries over them.
//
// An Index is safe for concurrent readers. Writers must own their copy:
// load or Clone an index, Add to it, then hand it off; never Add to an
// index that readers can already see.
package vectorindex

import (
	"fmt"
	"math"
	"sort"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

// Entry is one chunk and its embedding.
type Entry struct {
	Chunk  *domain.Chunk
	Vector []float32
}

// Index is an in-memory collection of embedded chunks.
type Index struct {
	model   string
	dims    int
	entries []Entry
}

// New creates an empty index for vectors produced by model.
// dims may be 0, in which case it is fixed by the first Add.
func New(model string, dims int) *Index {
	return &Index{model: model, dims: dims}
}

// Model returns the embedding model the vectors came from.
func (i *Index) Model() string { return i.model }

// Dimensions returns the vector size, 0 while empty and unset.
func (i *Index) Dimensions() int { return i.dims }

// Len returns the number of entries.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// Entries returns the entries in insertion order. The returned slice is a copy;
// the chunks and vectors it points at must not be modified.
func (i *Index) Entries() []Entry {
	out := make([]Entry, len(i.entries))
	copy(out, i.entries)
	return out
}

// Clone returns an index that can be added to without affecting i.
func (i *Index) Clone() *Index {
	c := &Index{model: i.model, dims: i.dims, entries: make([]Entry, len(i.entries))}
	copy(c.entries, i.entries)
	return c
}

// Add appends chunks with their vectors. All vectors must share one size.
func (i *Index) Add(chunks []*domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("add: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	for n, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("add: empty vector for chunk %d", n)
		}
		if i.dims == 0 {
			i.dims = len(v)
		}
		if len(v) != i.dims {
			return fmt.Errorf("add: vector %d has %d dimensions, index has %d", n, len(v), i.dims)
		}
	}
	for n := range chunks {
		i.entries = append(i.entries, Entry{Chunk: chunks[n], Vector: vectors[n]})
	}
	return nil
}

// Search returns the k entries most similar to query by cosine similarity.
func (i *Index) Search(query []float32, k int) []domain.ScoredChunk {
	ranked := i.rank(query, k)
	out := make([]domain.ScoredChunk, len(ranked))
	for n, r := range ranked {
		out[n] = domain.ScoredChunk{Chunk: i.entries[r.idx].Chunk, Score: r.score}
	}
	return out
}

// MMROptions tunes maximal marginal relevance search.
type MMROptions struct {
	// K is the number of results to return
	K int
	// FetchK is the number of nearest candidates to choose from
	FetchK int
	// Lambda trades relevance (1) against diversity (0)
	Lambda float64
}

// DefaultMMROptions returns k=3 from the 20 nearest with an even trade-off.
func DefaultMMROptions() MMROptions {
	return MMROptions{K: 3, FetchK: 20, Lambda: 0.5}
}

// MaxMarginalRelevance picks K results from the FetchK nearest entries,
// greedily preferring candidates that are relevant to query but
// dissimilar to what has already been picked.
func (i *Index) MaxMarginalRelevance(query []float32, opts MMROptions) []domain.ScoredChunk {
	if opts.K <= 0 {
		return nil
	}
	if opts.FetchK < opts.K {
		opts.FetchK = opts.K
	}
	candidates := i.rank(query, opts.FetchK)
	if len(candidates) == 0 {
		return nil
	}

	selected := []int{0}
	used := map[int]bool{0: true}
	for len(selected) < opts.K && len(selected) < len(candidates) {
		best, bestScore := -1, math.Inf(-1)
		for c := range candidates {
			if used[c] {
				continue
			}
			redundancy := math.Inf(-1)
			for _, s := range selected {
				sim := cosine(i.entries[candidates[c].idx].Vector, i.entries[candidates[s].idx].Vector)
				if sim > redundancy {
					redundancy = sim
				}
			}
			score := opts.Lambda*candidates[c].score - (1-opts.Lambda)*redundancy
			if score > bestScore {
				best, bestScore = c, score
			}
		}
		if best < 0 {
			break
		}
		selected = append(selected, best)
		used[best] = true
	}

	out := make([]domain.ScoredChunk, len(selected))
	for n, c := range selected {
		out[n] = domain.ScoredChunk{Chunk: i.entries[candidates[c].idx].Chunk, Score: candidates[c].score}
	}
	return out
}

type ranked struct {
	idx   int
	score float64
}

// rank returns up to k entry positions ordered by descending similarity.
// Ties keep insertion order.
func (i *Index) rank(query []float32, k int) []ranked {
	if k <= 0 || len(i.entries) == 0 || len(query) != i.dims {
		return nil
	}
	all := make([]ranked, len(i.entries))
	for n, e := range i.entries {
		all[n] = ranked{idx: n, score: cosine(query, e.Vector)}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].score > all[b].score })
	if len(all) > k {
		all = all[:k]
	}
	return all
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for n := range a {
		x, y := float64(a[n]), float64(b[n])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
