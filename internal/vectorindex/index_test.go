package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

func chunk(id, source string) *domain.Chunk {
	return &domain.Chunk{ID: id, Source: source, Content: id}
}

func TestIndex_AddAndLen(t *testing.T) {
	idx := New("m", 0)
	require.NoError(t, idx.Add(
		[]*domain.Chunk{chunk("a", "s1"), chunk("b", "s2")},
		[][]float32{{1, 0}, {0, 1}},
	))

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 2, idx.Dimensions())
	assert.Equal(t, "m", idx.Model())
}

func TestIndex_AddRejectsMismatch(t *testing.T) {
	idx := New("m", 2)

	err := idx.Add([]*domain.Chunk{chunk("a", "s")}, [][]float32{{1, 0, 0}})
	assert.Error(t, err)

	err = idx.Add([]*domain.Chunk{chunk("a", "s")}, nil)
	assert.Error(t, err)

	err = idx.Add([]*domain.Chunk{chunk("a", "s")}, [][]float32{{}})
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestIndex_CloneIsIndependent(t *testing.T) {
	idx := New("m", 2)
	require.NoError(t, idx.Add([]*domain.Chunk{chunk("a", "s")}, [][]float32{{1, 0}}))

	c := idx.Clone()
	require.NoError(t, c.Add([]*domain.Chunk{chunk("b", "s")}, [][]float32{{0, 1}}))

	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 2, c.Len())
}

func TestIndex_Search(t *testing.T) {
	idx := New("m", 2)
	require.NoError(t, idx.Add(
		[]*domain.Chunk{chunk("east", "s"), chunk("north", "s"), chunk("northeast", "s")},
		[][]float32{{1, 0}, {0, 1}, {0.7, 0.7}},
	))

	got := idx.Search([]float32{0, 1}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "north", got[0].Chunk.ID)
	assert.Equal(t, "northeast", got[1].Chunk.ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestIndex_SearchWrongDimensions(t *testing.T) {
	idx := New("m", 2)
	require.NoError(t, idx.Add([]*domain.Chunk{chunk("a", "s")}, [][]float32{{1, 0}}))

	assert.Empty(t, idx.Search([]float32{1, 0, 0}, 1))
}

func TestIndex_MaxMarginalRelevancePrefersDiversity(t *testing.T) {
	idx := New("m", 3)
	require.NoError(t, idx.Add(
		[]*domain.Chunk{chunk("a", "s"), chunk("a-dup", "s"), chunk("b", "s")},
		[][]float32{{1, 0, 0}, {1, 0, 0.01}, {0.6, 0.8, 0}},
	))

	query := []float32{1, 0.2, 0}

	plain := idx.Search(query, 2)
	require.Len(t, plain, 2)
	assert.Equal(t, "a-dup", plain[1].Chunk.ID, "plain similarity returns the near duplicate")

	mmr := idx.MaxMarginalRelevance(query, MMROptions{K: 2, FetchK: 3, Lambda: 0.5})
	require.Len(t, mmr, 2)
	assert.Equal(t, "a", mmr[0].Chunk.ID)
	assert.Equal(t, "b", mmr[1].Chunk.ID, "mmr skips the near duplicate")
}

func TestIndex_MaxMarginalRelevanceSmallIndex(t *testing.T) {
	idx := New("m", 2)
	require.NoError(t, idx.Add([]*domain.Chunk{chunk("a", "s")}, [][]float32{{1, 0}}))

	got := idx.MaxMarginalRelevance([]float32{1, 0}, DefaultMMROptions())
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Chunk.ID)

	assert.Empty(t, New("m", 2).MaxMarginalRelevance([]float32{1, 0}, DefaultMMROptions()))
}

func TestDefaultMMROptions(t *testing.T) {
	opts := DefaultMMROptions()
	assert.Equal(t, 3, opts.K)
	assert.Equal(t, 20, opts.FetchK)
	assert.Equal(t, 0.5, opts.Lambda)
}
