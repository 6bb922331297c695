package extract

import (
	"errors"
	"fmt"
	"time"

	"github.com/dslipak/pdf"

	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

const pageExtractTimeout = 10 * time.Second

// nativePDFPages extracts text page by page. A page that fails (or
// hangs on a malformed font table) becomes an empty string so the OCR
// fallback can pick it up; only failing to open the file is an error.
func nativePDFPages(path string, log *logger_i.Logger) ([]string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := guardedPageText(page)
		if err != nil {
			log.Debug("page extraction failed, leaving empty for OCR", "page", i, "error", err)
			content = ""
		}
		pages = append(pages, content)
	}
	return pages, nil
}

// guardedPageText runs GetPlainText behind a timeout. Some malformed
// PDFs make the parser spin; a stuck page is treated as empty.
func guardedPageText(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resChan <- result{"", fmt.Errorf("page parser panic: %v", rec)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageExtractTimeout):
		return "", errors.New("page extraction timeout")
	}
}
