// Package chunker splits raw document text into bounded, overlapping
// chunks suitable for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators is the split priority order: paragraph breaks first,
// then line breaks, sentence punctuation, commas, spaces, and finally
// character-level splitting as a last resort.
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Splitter produces chunks of at most chunkSize runes, with consecutive
// chunks sharing up to chunkOverlap trailing runes. Splitting is
// deterministic: the same input and configuration always yield the same
// output sequence.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter creates a Splitter. Non-positive size or negative overlap
// fall back to the defaults; an overlap that is not smaller than the
// chunk size is clamped to half of it.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}
}

// Split breaks text into chunks of at most chunkSize runes. It first
// decomposes the text into pieces using the separator priority list,
// recursing with the next separator into any piece still over budget,
// then greedily merges pieces back into chunks, seeding each chunk with
// the trailing overlap of the previous one.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	return s.merge(s.decompose(text, s.separators))
}

// decompose returns pieces that each fit within the chunk size budget.
// Separators stay attached to the piece they terminate, so concatenating
// all pieces reproduces the input exactly.
func (s *Splitter) decompose(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}
	if len(seps) == 0 || seps[0] == "" {
		return hardSplit(text, s.chunkSize)
	}
	sep := seps[0]
	if !strings.Contains(text, sep) {
		return s.decompose(text, seps[1:])
	}
	var pieces []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= s.chunkSize {
			pieces = append(pieces, part)
			continue
		}
		pieces = append(pieces, s.decompose(part, seps[1:])...)
	}
	return pieces
}

// merge greedily packs pieces into chunks up to the size budget. When a
// chunk fills up, the next one starts with the finished chunk's trailing
// overlap runes, trimmed if needed so the budget still holds.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0
	for _, p := range pieces {
		pl := utf8.RuneCountInString(p)
		if curLen > 0 && curLen+pl > s.chunkSize {
			done := cur.String()
			chunks = append(chunks, done)

			overlap := trailingRunes(done, min(s.chunkOverlap, s.chunkSize-pl))
			cur.Reset()
			cur.WriteString(overlap)
			cur.WriteString(p)
			curLen = utf8.RuneCountInString(overlap) + pl
			continue
		}
		cur.WriteString(p)
		curLen += pl
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// hardSplit cuts text into groups of at most n runes. Terminal fallback
// for content with no usable separator.
func hardSplit(text string, n int) []string {
	runes := []rune(text)
	out := make([]string, 0, (len(runes)+n-1)/n)
	for i := 0; i < len(runes); i += n {
		end := min(i+n, len(runes))
		out = append(out, string(runes[i:end]))
	}
	return out
}

// trailingRunes returns the last n runes of s.
func trailingRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}
