// Package mcp exposes the answering pipeline as Model Context Protocol
// tools so agent clients can consume it alongside the HTTP API.
package mcp

// AskInput defines the input parameters for the ask_legal_question tool.
type AskInput struct {
	// Query is the legal question, in any supported language.
	Query string `json:"query" jsonschema:"required,description=The legal question to answer"`
	// Language is the optional ISO 639-1 code; auto-detected when omitted.
	Language string `json:"language,omitempty" jsonschema:"description=Language code (en/hi/mr); auto-detected when omitted"`
	// TopK is the number of passages to retrieve.
	TopK int `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Number of source passages to retrieve"`
}

// AskOutput contains the answer and its sources.
type AskOutput struct {
	Answer   string      `json:"answer"`
	Language string      `json:"language"`
	Success  bool        `json:"success"`
	Sources  []AskSource `json:"sources,omitempty"`
}

// AskSource is one ranked source passage.
type AskSource struct {
	Rank      int     `json:"rank"`
	Source    string  `json:"source"`
	Page      int     `json:"page,omitempty"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance_score"`
}

// ListLanguagesInput takes no parameters.
type ListLanguagesInput struct{}

// ListLanguagesOutput lists the supported language codes.
type ListLanguagesOutput struct {
	Languages []string `json:"languages"`
	Pivot     string   `json:"pivot"`
}

// SummaryInput defines the input for the get_document_summary tool.
type SummaryInput struct {
	// Name is the document name, e.g. "constitution.txt".
	Name string `json:"name" jsonschema:"required,description=Name of the indexed legal document to summarize"`
}

// SummaryOutput contains the generated summary.
type SummaryOutput struct {
	Summary string `json:"summary"`
	Source  string `json:"source,omitempty"`
	Success bool   `json:"success"`
}
