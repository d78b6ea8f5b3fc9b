package gcp

import (
	"context"
	"fmt"
	"strings"
)

type OCRResult struct {
	Provider   string  `json:"provider"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Pages      int     `json:"pages"`
}

// OCR extracts handwritten or printed text from a scan.
type OCR interface {
	Extract(ctx context.Context, data []byte, mimeType string) (*OCRResult, error)
}

type ocrRouter struct {
	images    OCR
	documents OCR
}

// NewOCRRouter sends PDFs and TIFFs to documents and everything else to
// images. documents may be nil, in which case images handles all input.
func NewOCRRouter(images, documents OCR) OCR {
	return &ocrRouter{images: images, documents: documents}
}

func (r *ocrRouter) Extract(ctx context.Context, data []byte, mimeType string) (*OCRResult, error) {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	if IsDocumentMime(m) && r.documents != nil {
		return r.documents.Extract(ctx, data, m)
	}
	if r.images == nil {
		return nil, fmt.Errorf("ocr: no provider for %q", mimeType)
	}
	return r.images.Extract(ctx, data, m)
}

func IsDocumentMime(m string) bool {
	return m == "application/pdf" || m == "image/tiff" || m == "image/tif"
}
