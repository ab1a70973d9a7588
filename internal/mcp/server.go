package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/legalqa-server/internal/qa"
)

// Server wraps the MCP server with its pipeline dependency.
type Server struct {
	server  *mcp.Server
	service *qa.Service
}

// NewServer creates a configured MCP server with the legal-QA tools
// registered.
func NewServer(service *qa.Service) *Server {
	impl := &mcp.Implementation{
		Name:    "legalqa-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_legal_question",
		Description: "Answer a natural-language legal question in English, Hindi, or Marathi, grounded in indexed legal documents. Returns the answer with ranked source passages.",
	}, makeAskHandler(service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_languages",
		Description: "List the language codes the question-answering service supports.",
	}, makeListLanguagesHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_document_summary",
		Description: "Summarize an indexed legal document by name.",
	}, makeSummaryHandler(service))

	return &Server{server: server, service: service}
}

// Run starts the server on stdio transport (blocks until the client
// disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// NewHTTPHandler serves the MCP protocol over streamable HTTP, for
// mounting beside the health endpoint. The tool surface is pure
// request/response, so sessions are stateless and any replica can
// serve any call.
func NewHTTPHandler(server *Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server.server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}
