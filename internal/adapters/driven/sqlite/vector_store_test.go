package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/vectorindex"
)

func testIndex(t *testing.T, model string, texts ...string) *vectorindex.Index {
	t.Helper()
	page := domain.NewPageRecord("https://mosdac.gov.in/insat-3d", "")
	idx := vectorindex.New(model, 3)
	for n, text := range texts {
		v := []float32{float32(n + 1), 0.5, -1}
		require.NoError(t, idx.Add([]*domain.Chunk{domain.NewChunk(page, n, text)}, [][]float32{v}))
	}
	return idx
}

func TestVectorStore_EmptyLoad(t *testing.T) {
	s, err := NewVectorStore(t.TempDir(), "all-minilm")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	rev, err := s.Revision(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rev)
}

func TestVectorStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s, err := NewVectorStore(t.TempDir(), "all-minilm")
	require.NoError(t, err)
	defer s.Close()

	idx := testIndex(t, "all-minilm", "first chunk", "second chunk")
	require.NoError(t, s.Save(ctx, idx))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", got.Model())
	assert.Equal(t, 3, got.Dimensions())
	require.Equal(t, 2, got.Len())

	want := idx.Entries()
	for n, e := range got.Entries() {
		assert.Equal(t, *want[n].Chunk, *e.Chunk)
		assert.Equal(t, want[n].Vector, e.Vector)
	}

	rev, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
}

func TestVectorStore_SaveReplacesAndBumpsRevision(t *testing.T) {
	ctx := context.Background()
	s, err := NewVectorStore(t.TempDir(), "")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, testIndex(t, "m", "a", "b", "c")))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	page := domain.NewPageRecord("https://mosdac.gov.in/oceansat-3", "")
	require.NoError(t, loaded.Add([]*domain.Chunk{domain.NewChunk(page, 0, "d")}, [][]float32{{0, 0, 1}}))
	require.NoError(t, s.Save(ctx, loaded))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, got.Len())
	assert.Equal(t, "d", got.Entries()[3].Chunk.Content)
	assert.Equal(t, "mosdac_gov_in_oceansat-3", got.Entries()[3].Chunk.Mission)

	rev, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
}

func TestVectorStore_ModelMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewVectorStore(dir, "all-minilm")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, testIndex(t, "all-minilm", "a")))
	assert.ErrorIs(t, s.Save(ctx, testIndex(t, "text-embedding-3-small", "a")), domain.ErrModelMismatch)
	require.NoError(t, s.Close())

	other, err := NewVectorStore(dir, "text-embedding-3-small")
	require.NoError(t, err)
	defer other.Close()

	_, err = other.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrModelMismatch)
}

func TestVectorStore_SharedFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer, err := NewVectorStore(dir, "m")
	require.NoError(t, err)
	defer writer.Close()
	reader, err := NewVectorStore(dir, "m")
	require.NoError(t, err)
	defer reader.Close()

	require.NoError(t, writer.Save(ctx, testIndex(t, "m", "a")))

	rev, err := reader.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	idx, err := reader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
}

func TestFloat32Roundtrip(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Empty(t, bytesToFloat32Slice(nil))
}
