// Package extract produces full document text via a hybrid strategy:
// native per-page extraction first, OCR as a fallback for pages that
// come back empty (scanned books, image-only PDFs).
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/lu4p/cat"

	"github.com/corpusflower/corpusflower/internal/config"
	"github.com/corpusflower/corpusflower/internal/heuristics"
	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

// Meta carries document-level facts discovered during extraction.
type Meta struct {
	Language  string
	PageCount int
}

// OCR recognizes text on specific pages of a file. A nil pages slice
// means every page. Implementations live outside this package so tests
// and OCR-less deployments can run without one.
type OCR interface {
	PageTexts(ctx context.Context, path string, pages []int) (map[int]string, error)
}

type Extractor struct {
	ocr    OCR
	logger *logger_i.Logger
}

// New builds an extractor. ocr may be nil; affected pages then keep
// whatever native text (possibly none) was found.
func New(ocr OCR) *Extractor {
	return &Extractor{
		ocr:    ocr,
		logger: logger_i.NewLogger("extract"),
	}
}

// Extract returns the concatenated page texts of the document plus a
// language guess and page count. Per-page native failures are treated as
// empty pages and handed to OCR; OCR failure degrades to whatever native
// text exists. Only an unreadable non-PDF file yields an error.
func (e *Extractor) Extract(ctx context.Context, path string) (string, Meta, error) {
	var pages []string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages = e.hybridPDFPages(ctx, path)
	case ".txt", ".docx", ".rtf", ".odt":
		text, err := cat.File(path)
		if err != nil {
			return "", Meta{}, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
		}
		pages = []string{text}
	default:
		return "", Meta{}, fmt.Errorf("unsupported file type: %s", filepath.Base(path))
	}

	fullText := strings.Join(pages, "\n\n")
	meta := Meta{
		Language:  heuristics.DetectLanguage(fullText),
		PageCount: len(pages),
	}
	return fullText, meta, nil
}

func (e *Extractor) hybridPDFPages(ctx context.Context, path string) []string {
	name := filepath.Base(path)

	pages, nativeErr := nativePDFPages(path, e.logger)
	if nativeErr != nil {
		e.logger.Warn("native PDF extraction failed; trying OCR-only mode",
			"file", name, "error", nativeErr)
	}

	var needOCR []int // 1-based page numbers
	for i, p := range pages {
		if countInk(p) < config.MinPageChars {
			needOCR = append(needOCR, i+1)
		}
	}

	switch {
	case nativeErr != nil || (len(pages) > 0 && len(needOCR) == len(pages)):
		// Whole document failed or every page looks empty: OCR everything.
		pages = e.runOCR(ctx, path, nil, pages)
	case len(needOCR) > 0:
		pages = e.runOCR(ctx, path, needOCR, pages)
	}
	return pages
}

// runOCR substitutes recognized text into the affected slots. Failure is
// logged and the native pages are returned untouched; a degraded document
// still ingests.
func (e *Extractor) runOCR(ctx context.Context, path string, pageNums []int, pages []string) []string {
	name := filepath.Base(path)
	if e.ocr == nil {
		e.logger.Warn("no OCR backend configured; keeping native text", "file", name)
		return pages
	}

	recognized, err := e.ocr.PageTexts(ctx, path, pageNums)
	if err != nil {
		e.logger.Warn("OCR failed; keeping native text", "file", name, "error", err)
		return pages
	}

	nums := make([]int, 0, len(recognized))
	for n := range recognized {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	for _, n := range nums {
		idx := n - 1
		if idx < 0 {
			continue
		}
		for idx >= len(pages) {
			pages = append(pages, "")
		}
		pages[idx] = recognized[n]
		e.logger.Debug("OCR text substituted", "file", name, "page", n, "chars", len(recognized[n]))
	}
	return pages
}

func countInk(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
