// Package index stores chunk embeddings and serves nearest-neighbor
// queries over them. The primary implementation is a file-persisted
// exact index; a Qdrant-backed variant with the same surface exists for
// corpora beyond the brute-force scale.
package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	vectorsFile = "vectors.bin"
	chunksFile  = "chunks.json"

	vectorsMagic   = "LQVX"
	vectorsVersion = 1
)

// state is the immutable in-memory index. Build and Load swap the whole
// value so concurrent searches never observe a partially-built index.
type state struct {
	dimension int
	vectors   [][]float32
	chunks    []Chunk
}

// chunksArtifact is the JSON companion to the binary vector artifact.
// Both record the dimension and record count so Load can cross-check.
type chunksArtifact struct {
	Dimension int     `json:"dimension"`
	Count     int     `json:"count"`
	Chunks    []Chunk `json:"chunks"`
}

// FileIndex is an exact nearest-neighbor index over chunk embeddings,
// persisted as two companion artifacts in a directory. Search uses
// brute-force squared Euclidean distance, which is fine at the target
// scale of tens of thousands of chunks.
//
// Safe for concurrent use: searches share a read lock, Build and Load
// take the write lock only to swap state.
type FileIndex struct {
	dir      string
	embedder Embedder
	logger   *slog.Logger

	mu sync.RWMutex
	st *state
}

// NewFileIndex creates an index rooted at dir. The directory is created
// on first build. Call Load to pick up previously persisted artifacts.
func NewFileIndex(dir string, embedder Embedder, logger *slog.Logger) *FileIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileIndex{dir: dir, embedder: embedder, logger: logger}
}

// Build embeds every chunk, replaces the in-memory index, and persists
// both artifacts atomically. Any prior state, in memory and on disk, is
// replaced wholesale.
func (x *FileIndex) Build(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return ErrEmptyBuild
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	st := &state{dimension: dim, vectors: vectors, chunks: chunks}
	if err := x.persist(st); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	x.mu.Lock()
	x.st = st
	x.mu.Unlock()

	x.logger.Info("index built", "chunks", len(chunks), "dimension", dim, "dir", x.dir)
	return nil
}

// Load reconstructs the index from persisted artifacts. Returns
// ErrIndexNotFound if either artifact is missing and ErrIndexCorrupt if
// the two disagree. On any failure the previous in-memory state, if
// any, is left untouched.
func (x *FileIndex) Load(ctx context.Context) error {
	meta, err := x.loadChunks()
	if err != nil {
		return err
	}
	vectors, dim, err := x.loadVectors()
	if err != nil {
		return err
	}

	if len(vectors) != len(meta.Chunks) || meta.Count != len(meta.Chunks) {
		return fmt.Errorf("%w: %d vectors vs %d chunks (declared %d)",
			ErrIndexCorrupt, len(vectors), len(meta.Chunks), meta.Count)
	}
	if dim != meta.Dimension {
		return fmt.Errorf("%w: vector artifact dimension %d vs chunk artifact dimension %d",
			ErrIndexCorrupt, dim, meta.Dimension)
	}

	x.mu.Lock()
	x.st = &state{dimension: dim, vectors: vectors, chunks: meta.Chunks}
	x.mu.Unlock()

	x.logger.Info("index loaded", "chunks", len(meta.Chunks), "dimension", dim, "dir", x.dir)
	return nil
}

// Search embeds the query and returns the k nearest chunks, ranked
// ascending by squared Euclidean distance. Ties keep insertion order.
// Asking for more results than the index holds returns all of them.
func (x *FileIndex) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", k)
	}

	x.mu.RLock()
	st := x.st
	x.mu.RUnlock()
	if st == nil {
		return nil, ErrIndexNotLoaded
	}

	vectors, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	q := vectors[0]
	if len(q) != st.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(q), st.dimension)
	}

	distances := make([]float64, len(st.vectors))
	order := make([]int, len(st.vectors))
	for i, v := range st.vectors {
		distances[i] = squaredEuclidean(q, v)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]Result, k)
	for rank := 0; rank < k; rank++ {
		i := order[rank]
		results[rank] = Result{
			Rank:      rank + 1,
			Chunk:     st.chunks[i],
			Distance:  distances[i],
			Relevance: relevance(distances[i]),
		}
	}
	return results, nil
}

// Ready reports whether the index can serve searches.
func (x *FileIndex) Ready(ctx context.Context) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.st == nil {
		return ErrIndexNotLoaded
	}
	return nil
}

// Count returns the number of indexed chunks.
func (x *FileIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.st == nil {
		return 0
	}
	return len(x.st.chunks)
}

// persist writes both artifacts via write-then-rename so a crash never
// leaves a partially written file in place of a good one.
func (x *FileIndex) persist(st *state) error {
	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	meta, err := json.Marshal(chunksArtifact{
		Dimension: st.dimension,
		Count:     len(st.chunks),
		Chunks:    st.chunks,
	})
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(vectorsMagic)
	for _, v := range []uint32{vectorsVersion, uint32(st.dimension), uint32(len(st.vectors))} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("encode vector header: %w", err)
		}
	}
	for _, vec := range st.vectors {
		if err := binary.Write(&buf, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("encode vectors: %w", err)
		}
	}

	if err := writeAtomic(filepath.Join(x.dir, chunksFile), meta); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(x.dir, vectorsFile), buf.Bytes())
}

func (x *FileIndex) loadChunks() (*chunksArtifact, error) {
	path := filepath.Join(x.dir, chunksFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s missing", ErrIndexNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read chunk artifact: %w", err)
	}
	var meta chunksArtifact
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIndexCorrupt, path, err)
	}
	return &meta, nil
}

func (x *FileIndex) loadVectors() ([][]float32, int, error) {
	path := filepath.Join(x.dir, vectorsFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("%w: %s missing", ErrIndexNotFound, path)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read vector artifact: %w", err)
	}

	r := bytes.NewReader(data)
	magic := make([]byte, len(vectorsMagic))
	if _, err := r.Read(magic); err != nil || string(magic) != vectorsMagic {
		return nil, 0, fmt.Errorf("%w: %s has bad magic", ErrIndexCorrupt, path)
	}
	var version, dim, count uint32
	for _, dst := range []*uint32{&version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, 0, fmt.Errorf("%w: %s truncated header", ErrIndexCorrupt, path)
		}
	}
	if version != vectorsVersion {
		return nil, 0, fmt.Errorf("%w: %s has unsupported version %d", ErrIndexCorrupt, path, version)
	}

	// The header is untrusted: verify the payload size it implies
	// against the actual file before allocating anything from it.
	if want := uint64(count) * uint64(dim) * 4; uint64(r.Len()) != want {
		return nil, 0, fmt.Errorf("%w: %s declares %d records of dimension %d (%d bytes) but holds %d",
			ErrIndexCorrupt, path, count, dim, want, r.Len())
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, 0, fmt.Errorf("%w: %s truncated at record %d", ErrIndexCorrupt, path, i)
		}
		vectors[i] = vec
	}
	return vectors, int(dim), nil
}

// writeAtomic writes data to a temp file in the same directory and
// renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func squaredEuclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
