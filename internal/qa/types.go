// Package qa orchestrates the question-answering pipeline: language
// detection, pivot translation, retrieval, context assembly, answer
// generation, and back-translation.
package qa

import (
	"context"

	"github.com/bull/legalqa-server/internal/index"
	"github.com/bull/legalqa-server/internal/translate"
)

// Retriever is the vector-index surface the pipeline consumes.
// Implemented by index.FileIndex and index.QdrantIndex.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]index.Result, error)
	Ready(ctx context.Context) error
}

// Generator is the answer-generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Ready(ctx context.Context) error
}

// Translator is the pivot-translation surface. Both methods degrade
// internally and never fail.
type Translator interface {
	Detect(ctx context.Context, text string) translate.Language
	Translate(ctx context.Context, text string, src, dst translate.Language) string
}

// Options tunes a single Ask call.
type Options struct {
	// Language is the caller-supplied code; empty means auto-detect.
	Language string
	// TopK is the number of chunks to retrieve; non-positive selects
	// the service default.
	TopK int
	// IncludeSources controls whether the response carries the ranked
	// source list.
	IncludeSources bool
}

// Source is one ranked retrieval hit as surfaced to callers. Text is
// truncated to a snippet; Relevance is rounded to three decimals.
type Source struct {
	Rank      int     `json:"rank"`
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Page      int     `json:"page,omitempty"`
	Relevance float64 `json:"relevance_score"`
}

// Answer is the terminal response of one pipeline run. Every run,
// including degraded and failed ones, produces a well-formed Answer.
type Answer struct {
	// ID correlates the response with server logs.
	ID       string             `json:"id"`
	Answer   string             `json:"answer"`
	Language translate.Language `json:"language"`
	Query    string             `json:"original_query"`
	// PivotQuery is the query as submitted to retrieval and
	// generation, after pivot translation.
	PivotQuery string   `json:"pivot_query"`
	Sources    []Source `json:"sources,omitempty"`
	// Success is false whenever the answer is a fallback string (no
	// retrievable content, a storage failure, or failed generation) so
	// callers can distinguish genuine answers from degraded ones.
	Success bool `json:"success"`
	// Degraded marks answers produced after a capability failure.
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Summary is the response of a document-summary run.
type Summary struct {
	Summary string `json:"summary"`
	Source  string `json:"source,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Health reports per-component status plus an aggregate. Values are
// "ok" or an "error: ..." detail string; Overall is "ok" or "degraded".
type Health struct {
	Translator string `json:"translator"`
	Retriever  string `json:"retriever"`
	Generator  string `json:"generator"`
	Overall    string `json:"overall"`
}
