// Package ingest builds the vector index from a directory of legal
// documents.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bull/legalqa-server/internal/chunker"
	"github.com/bull/legalqa-server/internal/index"
)

// Builder is the index surface ingestion writes to. Implemented by
// index.FileIndex and index.QdrantIndex.
type Builder interface {
	Build(ctx context.Context, chunks []index.Chunk) error
}

// Result summarizes an ingestion run.
type Result struct {
	TotalDocs   int
	TotalChunks int
	FailedDocs  []FailedDoc
	Duration    time.Duration
}

// FailedDoc is a document that could not be processed. Failures are
// accumulated; they never abort the run.
type FailedDoc struct {
	Path   string
	Reason string
}

// Pipeline chunks every document under a directory and builds the
// index from the combined corpus.
type Pipeline struct {
	splitter *chunker.Splitter
	builder  Builder
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(splitter *chunker.Splitter, builder Builder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{splitter: splitter, builder: builder, logger: logger}
}

// pageMarker matches "[Page N]" markers that PDF extraction inserts
// into plain-text documents.
var pageMarker = regexp.MustCompile(`\[Page (\d+)\]`)

// Run chunks every .txt and .md file under docsDir and builds the index
// in one shot, replacing any previous corpus. A directory that yields
// zero chunks fails the run.
func (p *Pipeline) Run(ctx context.Context, docsDir string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	paths, err := listDocuments(docsDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .txt or .md documents found in %s", docsDir)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("found documents", "count", len(paths), "dir", docsDir)

	var all []index.Chunk
	for _, path := range paths {
		chunks, err := p.processDocument(path)
		if err != nil {
			p.logger.Warn("failed to process document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{Path: path, Reason: err.Error()})
			continue
		}
		all = append(all, chunks...)
		p.logger.Info("chunked document", "path", path, "chunks", len(chunks))
	}
	result.TotalChunks = len(all)

	if err := p.builder.Build(ctx, all); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"documents", result.TotalDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

// processDocument chunks one file. Markdown files get header-aware
// pre-splitting so chunks never straddle section boundaries.
func (p *Pipeline) processDocument(path string) ([]index.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("document is empty")
	}

	var texts []string
	if strings.EqualFold(filepath.Ext(path), ".md") {
		sections, err := chunker.SplitMarkdown(data)
		if err != nil {
			return nil, fmt.Errorf("split markdown: %w", err)
		}
		for _, sec := range sections {
			for _, piece := range p.splitter.Split(sec.Content) {
				if sec.HeaderPath != "" {
					piece = sec.HeaderPath + "\n\n" + piece
				}
				texts = append(texts, piece)
			}
		}
	} else {
		texts = p.splitter.Split(string(data))
	}

	source := filepath.Base(path)
	chunks := make([]index.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = index.Chunk{
			Text:        text,
			Source:      source,
			Page:        pageOf(text),
			ChunkIndex:  i,
			TotalChunks: len(texts),
		}
	}
	return chunks, nil
}

// pageOf extracts the first page marker in a chunk, 0 when absent.
func pageOf(text string) int {
	m := pageMarker.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	page, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return page
}

// listDocuments returns the .txt and .md files directly under dir,
// sorted for deterministic chunk ordering.
func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
