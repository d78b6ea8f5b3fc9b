package gcp

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

type Vision interface {
	OCR
	Close() error
}

func NewVision(log *logger.Logger) (Vision, error) {
	c, err := vision.NewImageAnnotatorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionService{log: log.With("client", "gcp.Vision"), client: c}, nil
}

func (s *visionService) Close() error {
	return s.client.Close()
}

// Extract runs DOCUMENT_TEXT_DETECTION, which handles handwriting better
// than plain TEXT_DETECTION.
func (s *visionService) Extract(ctx context.Context, img []byte, mimeType string) (*OCRResult, error) {
	out := &OCRResult{Provider: "gcp_vision"}
	if len(img) == 0 {
		return out, nil
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := s.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:        &visionpb.Image{Content: img},
			Features:     []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			ImageContext: &visionpb.ImageContext{LanguageHints: []string{"en"}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return out, nil
	}
	r0 := resp.GetResponses()[0]
	if msg := r0.GetError().GetMessage(); msg != "" {
		return nil, fmt.Errorf("vision annotate: %s", msg)
	}
	fta := r0.GetFullTextAnnotation()
	if fta == nil {
		return out, nil
	}
	out.Text = normalizeOCRText(fta.GetText())
	out.Pages = len(fta.GetPages())
	var sum float64
	var n int
	for _, p := range fta.GetPages() {
		for _, b := range p.GetBlocks() {
			if c := b.GetConfidence(); c > 0 {
				sum += float64(c)
				n++
			}
		}
	}
	if n > 0 {
		out.Confidence = sum / float64(n)
	}
	return out, nil
}
