package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder maps each text to a fixed vector. Unknown texts embed to
// the zero vector so tests control geometry explicitly.
type stubEmbedder struct {
	dim     int
	vectors map[string][]float32
	calls   int
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := s.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = make([]float32, s.dim)
		}
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding service unavailable")
}

func testEmbedder() *stubEmbedder {
	return &stubEmbedder{
		dim: 3,
		vectors: map[string][]float32{
			"equality before law":     {1, 0, 0},
			"right to property":       {0, 1, 0},
			"freedom of speech":       {0, 0, 1},
			"what is equality":        {0.9, 0.1, 0},
			"tell me about property":  {0.1, 0.9, 0},
			"duplicate vector one":    {0.5, 0.5, 0},
			"duplicate vector two":    {0.5, 0.5, 0},
			"query between the pair":  {0.5, 0.5, 0.1},
		},
	}
}

func testChunks(texts ...string) []Chunk {
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{
			Text:        t,
			Source:      "constitution.txt",
			ChunkIndex:  i,
			TotalChunks: len(texts),
		}
	}
	return chunks
}

func TestFileIndex_BuildAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := NewFileIndex(t.TempDir(), testEmbedder(), nil)

	err := idx.Build(ctx, testChunks("equality before law", "right to property", "freedom of speech"))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())

	results, err := idx.Search(ctx, "what is equality", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "equality before law", results[0].Chunk.Text)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
	assert.Less(t, results[0].Distance, results[1].Distance)
	assert.Greater(t, results[0].Relevance, results[1].Relevance)
	assert.InDelta(t, 1.0/(1.0+results[0].Distance), results[0].Relevance, 1e-12)
}

func TestFileIndex_BuildEmpty(t *testing.T) {
	idx := NewFileIndex(t.TempDir(), testEmbedder(), nil)
	err := idx.Build(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBuild)
}

func TestFileIndex_SearchBeforeLoad(t *testing.T) {
	idx := NewFileIndex(t.TempDir(), testEmbedder(), nil)
	_, err := idx.Search(context.Background(), "anything", 5)
	assert.ErrorIs(t, err, ErrIndexNotLoaded)
	assert.ErrorIs(t, idx.Ready(context.Background()), ErrIndexNotLoaded)
}

func TestFileIndex_SearchInvalidK(t *testing.T) {
	ctx := context.Background()
	idx := NewFileIndex(t.TempDir(), testEmbedder(), nil)
	require.NoError(t, idx.Build(ctx, testChunks("equality before law")))

	_, err := idx.Search(ctx, "what is equality", 0)
	assert.Error(t, err)
	_, err = idx.Search(ctx, "what is equality", -3)
	assert.Error(t, err)
}

func TestFileIndex_SearchKLargerThanIndex(t *testing.T) {
	ctx := context.Background()
	idx := NewFileIndex(t.TempDir(), testEmbedder(), nil)
	require.NoError(t, idx.Build(ctx, testChunks("equality before law", "right to property")))

	results, err := idx.Search(ctx, "what is equality", 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestFileIndex_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewFileIndex(t.TempDir(), testEmbedder(), nil)

	// Two chunks with identical vectors are equidistant from any query.
	require.NoError(t, idx.Build(ctx, testChunks("duplicate vector one", "duplicate vector two")))

	results, err := idx.Search(ctx, "query between the pair", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "duplicate vector one", results[0].Chunk.Text)
	assert.Equal(t, "duplicate vector two", results[1].Chunk.Text)
}

func TestFileIndex_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := NewFileIndex(dir, testEmbedder(), nil)
	require.NoError(t, first.Build(ctx, testChunks("equality before law", "right to property", "freedom of speech")))

	// A fresh instance over the same directory must serve identical results.
	second := NewFileIndex(dir, testEmbedder(), nil)
	require.NoError(t, second.Load(ctx))
	assert.Equal(t, 3, second.Count())

	want, err := first.Search(ctx, "tell me about property", 3)
	require.NoError(t, err)
	got, err := second.Search(ctx, "tell me about property", 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileIndex_LoadMissing(t *testing.T) {
	idx := NewFileIndex(filepath.Join(t.TempDir(), "never-built"), testEmbedder(), nil)
	err := idx.Load(context.Background())
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestFileIndex_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx := NewFileIndex(dir, testEmbedder(), nil)
	require.NoError(t, idx.Build(ctx, testChunks("equality before law", "right to property")))

	t.Run("truncated vectors", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "vectors.bin"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.bin"), data[:len(data)-5], 0o644))

		fresh := NewFileIndex(dir, testEmbedder(), nil)
		assert.ErrorIs(t, fresh.Load(ctx), ErrIndexCorrupt)
	})

	t.Run("bad magic", func(t *testing.T) {
		require.NoError(t, idx.Build(ctx, testChunks("equality before law", "right to property")))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.bin"), []byte("not an index"), 0o644))

		fresh := NewFileIndex(dir, testEmbedder(), nil)
		assert.ErrorIs(t, fresh.Load(ctx), ErrIndexCorrupt)
	})

	// A header that declares far more records than the file holds must
	// fail the load, not size allocations off the bogus count.
	t.Run("oversized declared count", func(t *testing.T) {
		require.NoError(t, idx.Build(ctx, testChunks("equality before law")))

		var buf bytes.Buffer
		buf.WriteString("LQVX")
		for _, v := range []uint32{1, 3, 400_000_000} {
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.bin"), buf.Bytes(), 0o644))

		fresh := NewFileIndex(dir, testEmbedder(), nil)
		assert.ErrorIs(t, fresh.Load(ctx), ErrIndexCorrupt)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		require.NoError(t, idx.Build(ctx, testChunks("equality before law")))
		data, err := os.ReadFile(filepath.Join(dir, "vectors.bin"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.bin"), append(data, 0xff, 0xff), 0o644))

		fresh := NewFileIndex(dir, testEmbedder(), nil)
		assert.ErrorIs(t, fresh.Load(ctx), ErrIndexCorrupt)
	})

	t.Run("artifact disagreement", func(t *testing.T) {
		require.NoError(t, idx.Build(ctx, testChunks("equality before law", "right to property")))
		// Chunk artifact from a single-chunk build against a two-record
		// vector artifact.
		other := t.TempDir()
		small := NewFileIndex(other, testEmbedder(), nil)
		require.NoError(t, small.Build(ctx, testChunks("freedom of speech")))
		data, err := os.ReadFile(filepath.Join(other, "chunks.json"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks.json"), data, 0o644))

		fresh := NewFileIndex(dir, testEmbedder(), nil)
		assert.ErrorIs(t, fresh.Load(ctx), ErrIndexCorrupt)
	})
}

// Load failure must not clobber a previously working in-memory state.
func TestFileIndex_FailedLoadKeepsState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx := NewFileIndex(dir, testEmbedder(), nil)
	require.NoError(t, idx.Build(ctx, testChunks("equality before law")))

	require.NoError(t, os.Remove(filepath.Join(dir, "vectors.bin")))
	assert.ErrorIs(t, idx.Load(ctx), ErrIndexNotFound)

	results, err := idx.Search(ctx, "what is equality", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

// Stray temp files from an interrupted persist must not affect loading.
func TestFileIndex_IgnoresTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx := NewFileIndex(dir, testEmbedder(), nil)
	require.NoError(t, idx.Build(ctx, testChunks("equality before law")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.bin.tmp"), []byte("partial write"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks.json.tmp"), []byte("{"), 0o644))

	fresh := NewFileIndex(dir, testEmbedder(), nil)
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, 1, fresh.Count())
}

func TestFileIndex_BuildEmbedFailure(t *testing.T) {
	idx := NewFileIndex(t.TempDir(), failingEmbedder{}, nil)
	err := idx.Build(context.Background(), testChunks("equality before law"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyBuild)
}

func TestFileIndex_RebuildReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	idx := NewFileIndex(t.TempDir(), testEmbedder(), nil)

	require.NoError(t, idx.Build(ctx, testChunks("equality before law", "right to property")))
	require.NoError(t, idx.Build(ctx, testChunks("freedom of speech")))
	assert.Equal(t, 1, idx.Count())

	results, err := idx.Search(ctx, "what is equality", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "freedom of speech", results[0].Chunk.Text)
}
