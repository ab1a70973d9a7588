// Package prompt turns retrieval results into bounded prompt context
// and holds the generation prompt templates.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bull/legalqa-server/internal/index"
)

// blockSeparator joins context blocks so the model can tell retrieved
// passages apart.
const blockSeparator = "\n---\n"

// DefaultMaxContextChars is the context budget handed to generation.
const DefaultMaxContextChars = 2048

// Assemble concatenates results in rank order into a context string of
// at most maxChars characters. Each result becomes a labeled block; the
// first block that would overflow the budget is dropped and assembly
// stops, so blocks are never truncated mid-passage.
func Assemble(results []index.Result, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	var blocks []string
	total := 0
	for _, r := range results {
		block := formatBlock(r.Chunk)
		// Budget in runes, like every other size in the pipeline, so
		// multi-byte scripts get the full context window.
		cost := utf8.RuneCountInString(block)
		if len(blocks) > 0 {
			cost += utf8.RuneCountInString(blockSeparator)
		}
		if total+cost > maxChars {
			break
		}
		blocks = append(blocks, block)
		total += cost
	}
	return strings.Join(blocks, blockSeparator)
}

// formatBlock labels a chunk with its source so generated answers can
// ground their citations.
func formatBlock(c index.Chunk) string {
	label := c.Source
	if label == "" {
		label = "Unknown"
	}
	if c.Page > 0 {
		label = fmt.Sprintf("%s, page %d", label, c.Page)
	}
	return fmt.Sprintf("[Source: %s]\n%s\n", label, c.Text)
}
