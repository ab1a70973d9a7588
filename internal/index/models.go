package index

import "context"

// Chunk is a bounded excerpt of a source document, the indexing unit.
// Chunks are immutable once created; the index owns them after a build.
type Chunk struct {
	Text string `json:"text"`
	// Source is the originating document name, e.g. "constitution.txt".
	Source string `json:"source"`
	// Page is the 1-based page number within the source, 0 if unknown.
	Page        int `json:"page,omitempty"`
	ChunkIndex  int `json:"chunk_index"`
	TotalChunks int `json:"total_chunks"`
}

// Result is a single retrieval hit.
type Result struct {
	// Rank is 1-based; rank 1 is the nearest chunk.
	Rank  int   `json:"rank"`
	Chunk Chunk `json:"chunk"`
	// Distance is the squared Euclidean distance to the query vector.
	Distance float64 `json:"distance"`
	// Relevance is 1/(1+Distance), a monotone transform of distance
	// into (0,1]. It is not a calibrated probability.
	Relevance float64 `json:"relevance_score"`
}

// Embedder converts texts into fixed-dimension vectors. Implemented by
// the embedding capability client; stubbed in tests.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// relevance converts a distance into the (0,1] relevance score.
func relevance(distance float64) float64 {
	return 1 / (1 + distance)
}
