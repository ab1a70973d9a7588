package prompt

import "fmt"

// Answer builds the generation prompt for a legal question. The model
// is instructed to answer only from the retrieved context and to keep
// the answer plain enough for a citizen without legal training.
func Answer(query, context string) string {
	return fmt.Sprintf(`Answer the following question in a simple, easy-to-understand way for a citizen.
Use only the provided context. Do not use any outside knowledge.

Question: %s

Context:
%s

Simplified Answer:`, query, context)
}

// Summary builds the prompt for summarizing a legal document from its
// retrieved chunks.
func Summary(documentName, text string) string {
	return fmt.Sprintf(`Summarize the following excerpts from the legal document %q in a few plain sentences a citizen can understand.

%s

Summary:`, documentName, text)
}
