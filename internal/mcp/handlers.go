package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/legalqa-server/internal/qa"
	"github.com/bull/legalqa-server/internal/translate"
)

// makeAskHandler creates the ask_legal_question tool handler. The
// pipeline absorbs its own failures, so the handler never returns an
// error for a degraded answer; the Success flag carries that.
func makeAskHandler(service *qa.Service) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		answer := service.Ask(ctx, input.Query, qa.Options{
			Language:       input.Language,
			TopK:           input.TopK,
			IncludeSources: true,
		})

		out := AskOutput{
			Answer:   answer.Answer,
			Language: string(answer.Language),
			Success:  answer.Success,
		}
		for _, s := range answer.Sources {
			out.Sources = append(out.Sources, AskSource{
				Rank:      s.Rank,
				Source:    s.Source,
				Page:      s.Page,
				Snippet:   s.Text,
				Relevance: s.Relevance,
			})
		}
		return nil, out, nil
	}
}

func makeListLanguagesHandler() func(
	context.Context, *mcp.CallToolRequest, ListLanguagesInput,
) (*mcp.CallToolResult, ListLanguagesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListLanguagesInput) (
		*mcp.CallToolResult, ListLanguagesOutput, error,
	) {
		out := ListLanguagesOutput{Pivot: string(translate.Pivot)}
		for _, lang := range translate.Supported() {
			out.Languages = append(out.Languages, string(lang))
		}
		return nil, out, nil
	}
}

func makeSummaryHandler(service *qa.Service) func(
	context.Context, *mcp.CallToolRequest, SummaryInput,
) (*mcp.CallToolResult, SummaryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SummaryInput) (
		*mcp.CallToolResult, SummaryOutput, error,
	) {
		summary := service.DocumentSummary(ctx, input.Name)
		return nil, SummaryOutput{
			Summary: summary.Summary,
			Source:  summary.Source,
			Success: summary.Success,
		}, nil
	}
}
