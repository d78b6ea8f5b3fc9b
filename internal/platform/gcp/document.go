package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type Document interface {
	OCR
	Close() error
}

type documentService struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
}

// NewDocument needs DOCUMENTAI_PROJECT_ID and DOCUMENTAI_PROCESSOR_ID.
// DOCUMENTAI_LOCATION defaults to "us".
func NewDocument(log *logger.Logger) (Document, error) {
	project := strings.TrimSpace(os.Getenv("DOCUMENTAI_PROJECT_ID"))
	processorID := strings.TrimSpace(os.Getenv("DOCUMENTAI_PROCESSOR_ID"))
	if project == "" || processorID == "" {
		return nil, fmt.Errorf("missing env var DOCUMENTAI_PROJECT_ID or DOCUMENTAI_PROCESSOR_ID")
	}
	location := strings.TrimSpace(os.Getenv("DOCUMENTAI_LOCATION"))
	if location == "" {
		location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	slog := log.With("client", "gcp.Document")
	slog.Info("Document AI initialized", "endpoint", endpoint)
	return &documentService{
		log:       slog,
		client:    c,
		processor: ProcessorName(project, location, processorID, strings.TrimSpace(os.Getenv("DOCUMENTAI_PROCESSOR_VERSION"))),
	}, nil
}

func (s *documentService) Close() error {
	return s.client.Close()
}

func (s *documentService) Extract(ctx context.Context, data []byte, mimeType string) (*OCRResult, error) {
	out := &OCRResult{Provider: "gcp_documentai"}
	if len(data) == 0 {
		return out, nil
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	resp, err := s.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: s.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: mimeType},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai process: %w", err)
	}
	doc := resp.GetDocument()
	if doc == nil {
		return out, nil
	}
	out.Text = normalizeOCRText(doc.GetText())
	out.Pages = len(doc.GetPages())
	var sum float64
	var n int
	for _, p := range doc.GetPages() {
		if c := p.GetLayout().GetConfidence(); c > 0 {
			sum += float64(c)
			n++
		}
	}
	if n > 0 {
		out.Confidence = sum / float64(n)
	}
	return out, nil
}

func ProcessorName(project, location, processorID, version string) string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	if version != "" {
		name += "/processorVersions/" + version
	}
	return name
}

// normalizeOCRText keeps paragraph breaks and collapses the rest. Essay
// structure matters for coherence scoring.
func normalizeOCRText(raw string) string {
	paras := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		if t := collapseWhitespace(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "\n\n")
}
