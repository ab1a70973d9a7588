package qa

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/legalqa-server/internal/index"
	"github.com/bull/legalqa-server/internal/translate"
)

type stubRetriever struct {
	results []index.Result
	err     error
	panics  bool
	calls   int
}

func (s *stubRetriever) Search(ctx context.Context, query string, k int) ([]index.Result, error) {
	s.calls++
	if s.panics {
		panic("retriever blew up")
	}
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.results) {
		return s.results[:k], nil
	}
	return s.results, nil
}

func (s *stubRetriever) Ready(ctx context.Context) error { return s.err }

type stubGenerator struct {
	answer string
	err    error
	calls  int
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func (s *stubGenerator) Ready(ctx context.Context) error { return s.err }

// stubTranslator tags translated text so tests can see which direction
// ran. With fail set it behaves like the real translator under engine
// failure: original text comes back.
type stubTranslator struct {
	detected    translate.Language
	fail        bool
	detectCalls int
}

func (s *stubTranslator) Detect(ctx context.Context, text string) translate.Language {
	s.detectCalls++
	return s.detected
}

func (s *stubTranslator) Translate(ctx context.Context, text string, src, dst translate.Language) string {
	if src == dst || s.fail {
		return text
	}
	return fmt.Sprintf("(%s->%s) %s", src, dst, text)
}

func constChunk() index.Result {
	return index.Result{
		Rank:      1,
		Chunk:     index.Chunk{Text: "Article 14 guarantees equality before the law.", Source: "constitution.txt"},
		Distance:  0.04,
		Relevance: 1.0 / 1.04,
	}
}

func newTestService(r Retriever, tr Translator, g Generator) *Service {
	return New(r, tr, g, 5, 2048, nil)
}

func TestAsk_EnglishHappyPath(t *testing.T) {
	retriever := &stubRetriever{results: []index.Result{constChunk()}}
	generator := &stubGenerator{answer: "Article 14 guarantees equality."}
	translator := &stubTranslator{detected: translate.English}
	svc := newTestService(retriever, translator, generator)

	answer := svc.Ask(context.Background(), "What does Article 14 say?", Options{IncludeSources: true})

	assert.True(t, answer.Success)
	assert.False(t, answer.Degraded)
	assert.Equal(t, "Article 14 guarantees equality.", answer.Answer)
	assert.Equal(t, translate.English, answer.Language)
	assert.Equal(t, "What does Article 14 say?", answer.Query)
	assert.Equal(t, "What does Article 14 say?", answer.PivotQuery)
	assert.NotEmpty(t, answer.ID)
	assert.Empty(t, answer.Error)

	require.Len(t, answer.Sources, 1)
	assert.Equal(t, 1, answer.Sources[0].Rank)
	assert.Equal(t, "constitution.txt", answer.Sources[0].Source)
	assert.InDelta(t, 0.962, answer.Sources[0].Relevance, 0.0005)
}

func TestAsk_HindiRoundTrip(t *testing.T) {
	retriever := &stubRetriever{results: []index.Result{constChunk()}}
	generator := &stubGenerator{answer: "Equality is guaranteed."}
	translator := &stubTranslator{detected: translate.Hindi}
	svc := newTestService(retriever, translator, generator)

	answer := svc.Ask(context.Background(), "अनुच्छेद 14 क्या कहता है?", Options{})

	assert.True(t, answer.Success)
	assert.Equal(t, translate.Hindi, answer.Language)
	assert.Equal(t, "(hi->en) अनुच्छेद 14 क्या कहता है?", answer.PivotQuery)
	assert.Equal(t, "(en->hi) Equality is guaranteed.", answer.Answer)
	assert.Nil(t, answer.Sources)
}

func TestAsk_ExplicitLanguageSkipsDetection(t *testing.T) {
	retriever := &stubRetriever{results: []index.Result{constChunk()}}
	generator := &stubGenerator{answer: "Answer."}
	translator := &stubTranslator{detected: translate.Hindi}
	svc := newTestService(retriever, translator, generator)

	answer := svc.Ask(context.Background(), "query", Options{Language: "mr"})

	assert.Equal(t, translate.Marathi, answer.Language)
	assert.Zero(t, translator.detectCalls)
}

func TestAsk_UnsupportedLanguageFallsBackToPivot(t *testing.T) {
	retriever := &stubRetriever{results: []index.Result{constChunk()}}
	generator := &stubGenerator{answer: "Answer."}
	svc := newTestService(retriever, &stubTranslator{}, generator)

	answer := svc.Ask(context.Background(), "une question", Options{Language: "fr"})
	assert.Equal(t, translate.English, answer.Language)
}

func TestAsk_NoResults(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &stubGenerator{answer: "should never be used"}
	svc := newTestService(retriever, &stubTranslator{detected: translate.English}, generator)

	answer := svc.Ask(context.Background(), "something off-corpus", Options{IncludeSources: true})

	assert.False(t, answer.Success)
	assert.Contains(t, answer.Answer, "couldn't find relevant information")
	assert.Empty(t, answer.Sources)
	assert.Zero(t, generator.calls, "generation must not run without retrieved context")
}

func TestAsk_RetrievalFailure(t *testing.T) {
	retriever := &stubRetriever{err: index.ErrIndexNotLoaded}
	generator := &stubGenerator{answer: "unused"}
	svc := newTestService(retriever, &stubTranslator{detected: translate.English}, generator)

	answer := svc.Ask(context.Background(), "any question", Options{})

	assert.False(t, answer.Success)
	assert.Contains(t, answer.Answer, "I apologize")
	assert.Contains(t, answer.Error, "not loaded")
	assert.Zero(t, generator.calls)
}

func TestAsk_GenerationFailureDegrades(t *testing.T) {
	retriever := &stubRetriever{results: []index.Result{constChunk()}}
	generator := &stubGenerator{err: fmt.Errorf("model overloaded")}
	svc := newTestService(retriever, &stubTranslator{detected: translate.English}, generator)

	answer := svc.Ask(context.Background(), "What does Article 14 say?", Options{})

	assert.False(t, answer.Success)
	assert.True(t, answer.Degraded)
	assert.Contains(t, answer.Answer, "I apologize")
}

func TestAsk_TranslationFailureServesPivotAnswer(t *testing.T) {
	retriever := &stubRetriever{results: []index.Result{constChunk()}}
	generator := &stubGenerator{answer: "Equality is guaranteed."}
	translator := &stubTranslator{detected: translate.Hindi, fail: true}
	svc := newTestService(retriever, translator, generator)

	answer := svc.Ask(context.Background(), "अनुच्छेद 14 क्या कहता है?", Options{})

	// Query and answer both pass through untranslated; the pipeline
	// still completes with the pivot-language answer.
	assert.True(t, answer.Success)
	assert.Equal(t, "अनुच्छेद 14 क्या कहता है?", answer.PivotQuery)
	assert.Equal(t, "Equality is guaranteed.", answer.Answer)
}

func TestAsk_PanicRecovery(t *testing.T) {
	retriever := &stubRetriever{panics: true}
	svc := newTestService(retriever, &stubTranslator{detected: translate.English}, &stubGenerator{})

	answer := svc.Ask(context.Background(), "any question", Options{})

	assert.False(t, answer.Success)
	assert.Contains(t, answer.Answer, "I apologize")
	assert.Contains(t, answer.Error, "internal error")
}

func TestAsk_TopKOverride(t *testing.T) {
	many := make([]index.Result, 10)
	for i := range many {
		r := constChunk()
		r.Rank = i + 1
		many[i] = r
	}
	retriever := &stubRetriever{results: many}
	generator := &stubGenerator{answer: "Answer."}
	svc := newTestService(retriever, &stubTranslator{detected: translate.English}, generator)

	answer := svc.Ask(context.Background(), "q", Options{TopK: 2, IncludeSources: true})
	assert.Len(t, answer.Sources, 2)
}

func TestAsk_SourceSnippetTruncation(t *testing.T) {
	long := constChunk()
	long.Chunk.Text = strings.Repeat("क", 400)
	retriever := &stubRetriever{results: []index.Result{long}}
	generator := &stubGenerator{answer: "Answer."}
	svc := newTestService(retriever, &stubTranslator{detected: translate.English}, generator)

	answer := svc.Ask(context.Background(), "q", Options{IncludeSources: true})

	require.Len(t, answer.Sources, 1)
	snippet := answer.Sources[0].Text
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.Equal(t, 303, len([]rune(snippet)))
}

func TestAskBatch_FailureIsolation(t *testing.T) {
	retriever := &stubRetriever{results: []index.Result{constChunk()}}
	generator := &stubGenerator{answer: "Answer."}
	svc := newTestService(retriever, &stubTranslator{detected: translate.English}, generator)

	answers := svc.AskBatch(context.Background(), []string{"first", "second", "third"}, "en")

	require.Len(t, answers, 3)
	for i, a := range answers {
		assert.True(t, a.Success, "query %d", i)
		assert.NotEmpty(t, a.ID)
	}
	// Each answer carries its own request ID.
	assert.NotEqual(t, answers[0].ID, answers[1].ID)
}

func TestDocumentSummary(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		retriever := &stubRetriever{results: []index.Result{constChunk()}}
		generator := &stubGenerator{answer: "The constitution guarantees equality."}
		svc := newTestService(retriever, &stubTranslator{}, generator)

		summary := svc.DocumentSummary(context.Background(), "constitution.txt")
		assert.True(t, summary.Success)
		assert.Equal(t, "The constitution guarantees equality.", summary.Summary)
		assert.Equal(t, "constitution.txt", summary.Source)
	})

	t.Run("not found", func(t *testing.T) {
		svc := newTestService(&stubRetriever{}, &stubTranslator{}, &stubGenerator{})
		summary := svc.DocumentSummary(context.Background(), "missing.txt")
		assert.False(t, summary.Success)
		assert.Equal(t, "Document not found.", summary.Summary)
	})

	t.Run("generation failure", func(t *testing.T) {
		retriever := &stubRetriever{results: []index.Result{constChunk()}}
		generator := &stubGenerator{err: fmt.Errorf("model overloaded")}
		svc := newTestService(retriever, &stubTranslator{}, generator)

		summary := svc.DocumentSummary(context.Background(), "constitution.txt")
		assert.False(t, summary.Success)
		assert.NotEmpty(t, summary.Error)
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("all ok", func(t *testing.T) {
		retriever := &stubRetriever{results: []index.Result{constChunk()}}
		svc := newTestService(retriever, &stubTranslator{}, &stubGenerator{answer: "ok"})

		health := svc.HealthCheck(context.Background())
		assert.Equal(t, "ok", health.Overall)
		assert.Equal(t, "ok", health.Retriever)
		assert.Equal(t, "ok", health.Generator)
		assert.Equal(t, "ok", health.Translator)
	})

	t.Run("retriever down", func(t *testing.T) {
		retriever := &stubRetriever{err: index.ErrIndexNotLoaded}
		svc := newTestService(retriever, &stubTranslator{}, &stubGenerator{})

		health := svc.HealthCheck(context.Background())
		assert.Equal(t, "degraded", health.Overall)
		assert.Contains(t, health.Retriever, "error:")
		assert.Equal(t, "ok", health.Generator)
	})

	t.Run("generator down", func(t *testing.T) {
		retriever := &stubRetriever{results: []index.Result{constChunk()}}
		svc := newTestService(retriever, &stubTranslator{}, &stubGenerator{err: fmt.Errorf("no client")})

		health := svc.HealthCheck(context.Background())
		assert.Equal(t, "degraded", health.Overall)
		assert.Contains(t, health.Generator, "error:")
	})
}
