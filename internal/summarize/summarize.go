// Package summarize produces the short catalog summary embedded as a
// document's coarse-grained vector.
package summarize

import "context"

// Input longer than this is truncated before reaching the model; the
// summary only needs the opening slice to characterize a document.
const maxSnippetChars = 8000

// Summarizer is the external chat-model collaborator. Implementations
// never fail on empty input; they return a canned description instead.
type Summarizer interface {
	Summarize(ctx context.Context, text, language, title string) (string, error)
}

func emptySummary(title string) string {
	return "Empty or unreadable document: " + title + "."
}

func snippet(text string) string {
	if len(text) > maxSnippetChars {
		return text[:maxSnippetChars]
	}
	return text
}

func buildPrompt(text, language, title string) string {
	return "You are building an internal catalog description for a document repository.\n" +
		"Document title: " + title + "\n" +
		"Detected language: " + language + "\n\n" +
		"Below is an excerpt from the document. Write a concise 1-2 paragraph summary " +
		"of its contents, focusing on key topics, entities, and themes that would help a researcher " +
		"quickly understand what the document is about. Do not invent content that is not supported by the text.\n\n" +
		"--- DOCUMENT EXCERPT ---\n" +
		snippet(text) +
		"\n--- END EXCERPT ---\n"
}
