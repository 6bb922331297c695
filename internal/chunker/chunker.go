// Package chunker splits document text into fixed-size overlapping
// windows for passage-level indexing.
package chunker

import (
	"strings"

	"github.com/corpusflower/corpusflower/internal/domain"
)

// Chunk slides a window of maxChars over the text, stepping back by
// overlap between windows. Windows are trimmed of surrounding whitespace
// and empty results are dropped; indices are assigned only to kept
// chunks, so they stay contiguous. Precondition: overlap < maxChars,
// otherwise the window cannot advance.
func Chunk(text string, maxChars, overlap int) []domain.Chunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	n := len(text)
	if n == 0 {
		return nil
	}

	var chunks []domain.Chunk
	start := 0
	idx := 0

	for start < n {
		end := start + maxChars
		if end > n {
			end = n
		}
		window := strings.TrimSpace(text[start:end])
		if window != "" {
			chunks = append(chunks, domain.Chunk{Text: window, Index: idx})
			idx++
		}
		if end == n {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}
