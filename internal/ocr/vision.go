// Package ocr implements the extraction fallback for image-only pages
// using Google Cloud Vision document text detection.
package ocr

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

// Vision's synchronous file annotation handles at most this many pages
// per request.
const pagesPerRequest = 5

type VisionClient struct {
	client *vision.ImageAnnotatorClient
	logger *logger_i.Logger
}

// NewVisionClient builds an OCR client using ambient Google credentials
// (GOOGLE_APPLICATION_CREDENTIALS or metadata-server identity).
func NewVisionClient(ctx context.Context) (*VisionClient, error) {
	c, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionClient{
		client: c,
		logger: logger_i.NewLogger("ocr_vision"),
	}, nil
}

func (v *VisionClient) Close() error {
	return v.client.Close()
}

// PageTexts OCRs the requested 1-based pages of the file and returns
// page number → recognized text. A nil pages slice means the whole
// document; the total page count is learned from the first response.
func (v *VisionClient) PageTexts(ctx context.Context, path string, pages []int) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	texts := make(map[int]string)

	if len(pages) == 0 {
		// First request without explicit pages covers pages 1..5 and
		// reports the document's total page count.
		total, err := v.annotate(ctx, data, mimeType, nil, texts)
		if err != nil {
			return nil, err
		}
		for n := pagesPerRequest + 1; n <= total; n++ {
			pages = append(pages, n)
		}
	}

	for start := 0; start < len(pages); start += pagesPerRequest {
		end := start + pagesPerRequest
		if end > len(pages) {
			end = len(pages)
		}
		if _, err := v.annotate(ctx, data, mimeType, pages[start:end], texts); err != nil {
			return nil, err
		}
	}
	return texts, nil
}

func (v *VisionClient) annotate(ctx context.Context, data []byte, mimeType string, pages []int, out map[int]string) (int, error) {
	req := &visionpb.AnnotateFileRequest{
		InputConfig: &visionpb.InputConfig{
			Content:  data,
			MimeType: mimeType,
		},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}
	for _, p := range pages {
		req.Pages = append(req.Pages, int32(p))
	}

	resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{req},
	})
	if err != nil {
		return 0, fmt.Errorf("vision BatchAnnotateFiles: %w", err)
	}
	if len(resp.Responses) == 0 {
		return 0, nil
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil && fileResp.Error.Message != "" {
		return 0, fmt.Errorf("vision file error: %s", fileResp.Error.Message)
	}

	for _, r := range fileResp.Responses {
		if r == nil {
			continue
		}
		if r.Error != nil && r.Error.Message != "" {
			v.logger.Warn("vision page error", "page", r.GetContext().GetPageNumber(), "error", r.Error.Message)
			continue
		}
		page := int(r.GetContext().GetPageNumber())
		if page <= 0 {
			continue
		}
		out[page] = r.GetFullTextAnnotation().GetText()
	}
	return int(fileResp.TotalPages), nil
}
