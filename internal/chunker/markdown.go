package chunker

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is a header-delimited region of a markdown document. Sections
// are pre-split units: each one is fed to the Splitter separately so
// chunks never straddle a heading boundary.
type Section struct {
	// HeaderPath is the heading hierarchy, e.g. "Fundamental Rights > Article 14".
	// Empty for documents without headings and for preamble text.
	HeaderPath string
	// Content is the section text including its heading line.
	Content string
}

// SplitMarkdown splits a markdown document at H1 and H2 boundaries.
// Documents without headings come back as a single section. Text before
// the first heading is preserved as a preamble section.
func SplitMarkdown(source []byte) ([]Section, error) {
	md := goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID()))
	doc := md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect toc: %w", err)
	}

	titles := flattenTitles(tree.Items, 1)
	starts := headingOffsets(doc, source)

	if len(titles) == 0 || len(starts) == 0 {
		content := strings.TrimSpace(string(source))
		if content == "" {
			return nil, nil
		}
		return []Section{{Content: content}}, nil
	}

	// TOC items and level<=2 heading nodes appear in the same document
	// order; pair them up positionally.
	n := min(len(titles), len(starts))

	var sections []Section
	if pre := strings.TrimSpace(string(source[:starts[0]])); pre != "" {
		sections = append(sections, Section{Content: pre})
	}

	var lastTop string
	for i := 0; i < n; i++ {
		end := len(source)
		if i+1 < n {
			end = starts[i+1]
		}
		content := strings.TrimSpace(string(source[starts[i]:end]))
		if content == "" {
			continue
		}

		path := titles[i].title
		if titles[i].depth == 1 {
			lastTop = titles[i].title
		} else if lastTop != "" {
			path = lastTop + " > " + titles[i].title
		}
		sections = append(sections, Section{HeaderPath: path, Content: content})
	}
	return sections, nil
}

type tocEntry struct {
	title string
	depth int
}

// flattenTitles walks the TOC tree depth-first, which matches document order.
func flattenTitles(items toc.Items, depth int) []tocEntry {
	var entries []tocEntry
	for _, item := range items {
		entries = append(entries, tocEntry{title: string(item.Title), depth: depth})
		entries = append(entries, flattenTitles(item.Items, depth+1)...)
	}
	return entries
}

// headingOffsets returns the line-start offsets of every H1/H2 heading.
func headingOffsets(doc ast.Node, source []byte) []int {
	var starts []int
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			h := n.(*ast.Heading)
			if h.Level <= 2 && h.Lines().Len() > 0 {
				// Lines() covers the heading text; back up past the
				// "#" markers to the start of the line.
				start := h.Lines().At(0).Start
				for start > 0 && source[start-1] != '\n' {
					start--
				}
				starts = append(starts, start)
			}
		}
		return ast.WalkContinue, nil
	})
	return starts
}
