package translate

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the translation memo. Entries are evicted
// least-recently-used; they never expire by time.
const DefaultCacheSize = 1000

// Engine is the external translation/detection capability. Implemented
// by the generation client; stubbed in tests.
type Engine interface {
	TranslateRaw(ctx context.Context, text, src, dst string) (string, error)
	DetectLanguage(ctx context.Context, text string) (string, error)
}

type cacheKey struct {
	text string
	src  Language
	dst  Language
}

// Translator memoizes engine translations in a bounded LRU cache. Safe
// for concurrent use; the cache synchronizes internally.
type Translator struct {
	engine Engine
	cache  *lru.Cache[cacheKey, string]
	logger *slog.Logger
}

// New creates a Translator with the given cache capacity. Non-positive
// capacity selects DefaultCacheSize.
func New(engine Engine, cacheSize int, logger *slog.Logger) (*Translator, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[cacheKey, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create translation cache: %w", err)
	}
	return &Translator{engine: engine, cache: cache, logger: logger}, nil
}

// Detect returns the text's language, constrained to the supported set.
// Detection failure and unsupported languages both fall back to the
// pivot; callers never see an error.
func (t *Translator) Detect(ctx context.Context, text string) Language {
	code, err := t.engine.DetectLanguage(ctx, text)
	if err != nil {
		t.logger.Warn("language detection failed, assuming pivot", "error", err)
		return Pivot
	}
	return Normalize(code)
}

// Translate returns text in dst. Identity when src == dst. On a cache
// miss the engine is invoked once; its failure degrades to returning
// the original text, and the miss is not cached so a transient failure
// can self-heal on retry.
func (t *Translator) Translate(ctx context.Context, text string, src, dst Language) string {
	if src == dst || text == "" {
		return text
	}

	key := cacheKey{text: text, src: src, dst: dst}
	if cached, ok := t.cache.Get(key); ok {
		return cached
	}

	translated, err := t.engine.TranslateRaw(ctx, text, string(src), string(dst))
	if err != nil {
		t.logger.Warn("translation failed, returning original text",
			"src", src, "dst", dst, "error", err)
		return text
	}

	t.cache.Add(key, translated)
	return translated
}

// CacheLen returns the number of cached translations.
func (t *Translator) CacheLen() int {
	return t.cache.Len()
}
