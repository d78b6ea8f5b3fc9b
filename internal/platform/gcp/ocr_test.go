package gcp

import (
	"context"
	"testing"
)

type fakeOCR struct {
	name string
	got  string
}

func (f *fakeOCR) Extract(_ context.Context, _ []byte, mimeType string) (*OCRResult, error) {
	f.got = mimeType
	return &OCRResult{Provider: f.name, Text: "x"}, nil
}

func TestOCRRouter(t *testing.T) {
	img, doc := &fakeOCR{name: "img"}, &fakeOCR{name: "doc"}
	r := NewOCRRouter(img, doc)

	res, err := r.Extract(context.Background(), []byte("x"), "Application/PDF")
	if err != nil || res.Provider != "doc" {
		t.Fatalf("pdf: got %+v err %v", res, err)
	}
	res, err = r.Extract(context.Background(), []byte("x"), "image/jpeg")
	if err != nil || res.Provider != "img" {
		t.Fatalf("jpeg: got %+v err %v", res, err)
	}

	imagesOnly := NewOCRRouter(img, nil)
	res, err = imagesOnly.Extract(context.Background(), []byte("x"), "application/pdf")
	if err != nil || res.Provider != "img" {
		t.Fatalf("pdf without document ai: got %+v err %v", res, err)
	}
}

func TestNormalizeOCRTextKeepsParagraphs(t *testing.T) {
	raw := "Some people  believe\nthat cities\n\n\n  are crowded.\r\n\r\nIn conclusion  "
	want := "Some people believe that cities\n\nare crowded.\n\nIn conclusion"
	if got := normalizeOCRText(raw); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestProcessorName(t *testing.T) {
	got := ProcessorName("p", "eu", "abc", "")
	if got != "projects/p/locations/eu/processors/abc" {
		t.Fatalf("got %q", got)
	}
	if got := ProcessorName("p", "eu", "abc", "v2"); got != "projects/p/locations/eu/processors/abc/processorVersions/v2" {
		t.Fatalf("got %q", got)
	}
}
