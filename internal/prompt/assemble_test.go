package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bull/legalqa-server/internal/index"
)

func results(texts ...string) []index.Result {
	out := make([]index.Result, len(texts))
	for i, text := range texts {
		out[i] = index.Result{
			Rank:  i + 1,
			Chunk: index.Chunk{Text: text, Source: "act.txt"},
		}
	}
	return out
}

// TestAssemble_Basic verifies blocks appear in rank order with source
// labels and separators.
func TestAssemble_Basic(t *testing.T) {
	ctx := Assemble(results("First passage.", "Second passage."), 2048)

	if !strings.Contains(ctx, "[Source: act.txt]") {
		t.Errorf("Context missing source label: %q", ctx)
	}
	if !strings.Contains(ctx, "\n---\n") {
		t.Errorf("Context missing block separator")
	}
	first := strings.Index(ctx, "First passage.")
	second := strings.Index(ctx, "Second passage.")
	if first < 0 || second < 0 || first > second {
		t.Errorf("Blocks out of rank order: %q", ctx)
	}
}

// TestAssemble_Budget verifies the output never exceeds the budget and
// blocks are dropped whole, not truncated.
func TestAssemble_Budget(t *testing.T) {
	long := strings.Repeat("statute text ", 30)
	ctx := Assemble(results(long, long, long, long, long), 500)

	if len(ctx) > 500 {
		t.Errorf("Context is %d chars, budget is 500", len(ctx))
	}
	// Whatever made it in must be complete blocks.
	for _, block := range strings.Split(ctx, "\n---\n") {
		if !strings.HasPrefix(block, "[Source:") {
			t.Errorf("Truncated block: %q", block)
		}
	}
}

// TestAssemble_RuneBudget verifies the budget counts characters rather
// than bytes, so multi-byte scripts keep the full context window.
func TestAssemble_RuneBudget(t *testing.T) {
	text := strings.Repeat("क", 120)
	ctx := Assemble(results(text), 150)

	// The block is ~139 characters but ~380 bytes; it must fit.
	if ctx == "" {
		t.Fatal("block within the character budget was dropped")
	}
	if n := utf8.RuneCountInString(ctx); n > 150 {
		t.Errorf("Context has %d characters, budget is 150", n)
	}
}

// TestAssemble_FirstBlockTooBig verifies an oversized first result
// yields empty context rather than a partial passage.
func TestAssemble_FirstBlockTooBig(t *testing.T) {
	huge := strings.Repeat("x", 5000)
	if ctx := Assemble(results(huge), 100); ctx != "" {
		t.Errorf("Expected empty context, got %d chars", len(ctx))
	}
}

// TestAssemble_Empty verifies no results produce empty context.
func TestAssemble_Empty(t *testing.T) {
	if ctx := Assemble(nil, 2048); ctx != "" {
		t.Errorf("Expected empty context for no results, got %q", ctx)
	}
}

// TestAssemble_PageLabel verifies page numbers appear in source labels.
func TestAssemble_PageLabel(t *testing.T) {
	r := []index.Result{{
		Rank:  1,
		Chunk: index.Chunk{Text: "Passage.", Source: "constitution.txt", Page: 12},
	}}
	ctx := Assemble(r, 2048)
	if !strings.Contains(ctx, "[Source: constitution.txt, page 12]") {
		t.Errorf("Missing page label: %q", ctx)
	}
}

// TestAssemble_UnknownSource verifies chunks without a source get a
// placeholder label.
func TestAssemble_UnknownSource(t *testing.T) {
	r := []index.Result{{Rank: 1, Chunk: index.Chunk{Text: "Passage."}}}
	ctx := Assemble(r, 2048)
	if !strings.Contains(ctx, "[Source: Unknown]") {
		t.Errorf("Missing placeholder label: %q", ctx)
	}
}

// TestAssemble_ZeroBudgetUsesDefault verifies non-positive budgets fall
// back to the default.
func TestAssemble_ZeroBudgetUsesDefault(t *testing.T) {
	ctx := Assemble(results("Short passage."), 0)
	if ctx == "" {
		t.Errorf("Default budget should admit a short block")
	}
}
