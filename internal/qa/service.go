package qa

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/bull/legalqa-server/internal/index"
	"github.com/bull/legalqa-server/internal/prompt"
	"github.com/bull/legalqa-server/internal/translate"
)

const (
	// answerNotFound terminates a run that retrieved nothing.
	// Generation is never invoked for these runs.
	answerNotFound = "I couldn't find relevant information to answer your question. Please try rephrasing or ask about a different topic."

	// answerApology replaces the generated answer when the generation
	// capability fails.
	answerApology = "I apologize, but I encountered an error while processing your question. Please try again."

	// summaryNotFound is returned when no chunks match a document name.
	summaryNotFound = "Document not found."

	// sourceSnippetLen bounds the chunk text echoed in source lists.
	sourceSnippetLen = 300

	// summaryTopK is how many chunks a document summary draws on.
	summaryTopK = 3

	DefaultTopK = 5
)

// Service runs the answering pipeline. Construct once at process start
// and share across requests; the retriever is read-only during serving
// and the translator synchronizes its own cache.
type Service struct {
	retriever  Retriever
	translator Translator
	generator  Generator
	logger     *slog.Logger

	topK            int
	maxContextChars int
}

// New creates a Service. Non-positive topK and maxContextChars select
// the defaults.
func New(retriever Retriever, translator Translator, generator Generator, topK, maxContextChars int, logger *slog.Logger) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxContextChars <= 0 {
		maxContextChars = prompt.DefaultMaxContextChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		retriever:       retriever,
		translator:      translator,
		generator:       generator,
		logger:          logger,
		topK:            topK,
		maxContextChars: maxContextChars,
	}
}

// Ask runs the full pipeline for one query. It never returns an error
// and never panics out of a run: every terminal state, including
// storage failures, produces a well-formed Answer.
func (s *Service) Ask(ctx context.Context, query string, opts Options) (answer Answer) {
	id := uuid.New().String()
	logger := s.logger.With("request_id", id)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked", "panic", r)
			answer = Answer{
				ID:      id,
				Answer:  answerApology,
				Query:   query,
				Success: false,
				Error:   fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	// Stage 1: accept the caller's language or detect one. Unsupported
	// and undetectable inputs fall back to the pivot.
	var lang translate.Language
	if opts.Language != "" {
		lang = translate.Normalize(opts.Language)
	} else {
		lang = s.translator.Detect(ctx, query)
	}
	logger.Debug("language resolved", "language", lang)

	// Stage 2: translate the query to the pivot. Degrades to the
	// original text on failure.
	pivotQuery := s.translator.Translate(ctx, query, lang, translate.Pivot)

	// Stage 3: retrieve. Storage errors are fatal for this request and
	// surfaced with detail; zero results short-circuit to NoResults.
	topK := opts.TopK
	if topK <= 0 {
		topK = s.topK
	}
	results, err := s.retriever.Search(ctx, pivotQuery, topK)
	if err != nil {
		logger.Error("retrieval failed", "error", err)
		return Answer{
			ID:         id,
			Answer:     answerApology,
			Language:   lang,
			Query:      query,
			PivotQuery: pivotQuery,
			Success:    false,
			Error:      err.Error(),
		}
	}
	if len(results) == 0 {
		logger.Info("no results retrieved")
		return Answer{
			ID:         id,
			Answer:     answerNotFound,
			Language:   lang,
			Query:      query,
			PivotQuery: pivotQuery,
			Sources:    []Source{},
			Success:    false,
		}
	}
	logger.Debug("retrieved chunks", "count", len(results))

	// Stage 4: assemble the bounded context.
	context := prompt.Assemble(results, s.maxContextChars)

	// Stage 5: generate in the pivot language. Failure degrades to the
	// canned apology; the run continues so the response stays whole.
	degraded := false
	pivotAnswer, err := s.generator.Generate(ctx, prompt.Answer(pivotQuery, context))
	if err != nil {
		logger.Warn("generation failed, degrading to canned answer", "error", err)
		pivotAnswer = answerApology
		degraded = true
	}

	// Stage 6: translate the answer back. Degrades to the pivot text.
	finalAnswer := s.translator.Translate(ctx, pivotAnswer, translate.Pivot, lang)

	answer = Answer{
		ID:         id,
		Answer:     finalAnswer,
		Language:   lang,
		Query:      query,
		PivotQuery: pivotQuery,
		Success:    !degraded,
		Degraded:   degraded,
	}
	if opts.IncludeSources {
		answer.Sources = formatSources(results)
	}
	logger.Info("pipeline complete", "success", answer.Success, "degraded", degraded)
	return answer
}

// AskBatch answers queries independently and sequentially. One query's
// failure never aborts the batch; a cancelled context fails the
// remaining queries through their own pipeline runs.
func (s *Service) AskBatch(ctx context.Context, queries []string, language string) []Answer {
	answers := make([]Answer, 0, len(queries))
	for _, q := range queries {
		answers = append(answers, s.Ask(ctx, q, Options{
			Language:       language,
			IncludeSources: true,
		}))
	}
	return answers
}

// DocumentSummary summarizes a document by retrieving chunks keyed by
// its name. Translation is bypassed: summaries are served in the pivot
// language.
func (s *Service) DocumentSummary(ctx context.Context, documentName string) Summary {
	results, err := s.retriever.Search(ctx, documentName, summaryTopK)
	if err != nil {
		s.logger.Error("summary retrieval failed", "document", documentName, "error", err)
		return Summary{Summary: "Error generating summary.", Success: false, Error: err.Error()}
	}
	if len(results) == 0 {
		return Summary{Summary: summaryNotFound, Success: false}
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	summary, err := s.generator.Generate(ctx, prompt.Summary(documentName, strings.Join(texts, "\n")))
	if err != nil {
		s.logger.Warn("summary generation failed", "document", documentName, "error", err)
		return Summary{Summary: "Error generating summary.", Success: false, Error: err.Error()}
	}

	return Summary{
		Summary: summary,
		Source:  results[0].Chunk.Source,
		Success: true,
	}
}

// HealthCheck probes each subordinate capability with a trivial call
// and reports per-component status. It never returns an error; every
// failure is captured into the payload.
func (s *Service) HealthCheck(ctx context.Context) Health {
	health := Health{
		Translator: "ok",
		Retriever:  "ok",
		Generator:  "ok",
		Overall:    "ok",
	}

	// Identity translation exercises the translator without touching
	// the external engine.
	if got := s.translator.Translate(ctx, "test", translate.Pivot, translate.Pivot); got != "test" {
		health.Translator = "error: identity translation altered text"
		health.Overall = "degraded"
	}

	if err := s.retriever.Ready(ctx); err != nil {
		health.Retriever = "error: " + err.Error()
		health.Overall = "degraded"
	}

	if err := s.generator.Ready(ctx); err != nil {
		health.Generator = "error: " + err.Error()
		health.Overall = "degraded"
	}

	return health
}

// formatSources shapes retrieval results for responses: snippet text,
// rounded scores.
func formatSources(results []index.Result) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		text := r.Chunk.Text
		if runes := []rune(text); len(runes) > sourceSnippetLen {
			text = string(runes[:sourceSnippetLen]) + "..."
		}
		sources[i] = Source{
			Rank:      r.Rank,
			Text:      text,
			Source:    r.Chunk.Source,
			Page:      r.Chunk.Page,
			Relevance: math.Round(r.Relevance*1000) / 1000,
		}
	}
	return sources
}
