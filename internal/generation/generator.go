// Package generation is the chat-model capability client. It backs
// answer generation and, because the same instruction-tuned model is
// competent at both, the raw translation and language-detection
// capabilities consumed by the translation layer.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/bull/legalqa-server/internal/embedding"
)

const (
	// DefaultModel generates answers; all generation happens in the
	// pivot language (English).
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 60 * time.Second
)

// Generator issues chat completions with a per-request timeout,
// retrying only rate-limited requests.
type Generator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewGenerator creates a Generator sharing the given API client. Zero
// model and timeout select the defaults.
func NewGenerator(client *embedding.Client, model string, timeout time.Duration) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{client: client.Client(), model: model, timeout: timeout}
}

// Generate returns the completion for a prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, prompt)
}

// TranslateRaw translates text between two language codes. src and dst
// are ISO 639-1 codes; callers guarantee they differ.
func (g *Generator) TranslateRaw(ctx context.Context, text, src, dst string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Reply with only the translation, nothing else.\n\n%s",
		languageName(src), languageName(dst), text)
	out, err := g.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DetectLanguage returns the ISO 639-1 code of the text's language.
func (g *Generator) DetectLanguage(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(
		"Identify the language of the following text. Reply with only its ISO 639-1 code (e.g. en, hi, mr).\n\n%s",
		text)
	out, err := g.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(out)), nil
}

// Ready reports whether the generator is usable. The API is not probed;
// a misconfigured key surfaces on first use as a degraded answer.
func (g *Generator) Ready(ctx context.Context) error {
	if g.client == nil {
		return fmt.Errorf("generation client not configured")
	}
	return nil
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	var content string

	operation := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model: openai.ChatModel(g.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("completion returned no choices"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// languageName spells out the codes the service supports so translation
// prompts are unambiguous; unknown codes pass through as-is.
func languageName(code string) string {
	switch code {
	case "en":
		return "English"
	case "hi":
		return "Hindi"
	case "mr":
		return "Marathi"
	default:
		return code
	}
}
