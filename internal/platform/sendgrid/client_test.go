package sendgrid

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

func TestSendPostsMailPayload(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" || r.Method != http.MethodPost {
			t.Errorf("request: got %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer SG.test" {
			t.Errorf("auth: got %q", r.Header.Get("Authorization"))
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "SG.test", Host: srv.URL, FromEmail: "coach@example.com", FromName: "Coach"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Send(t.Context(), Email{
		To:          []Address{{Email: "learner@example.com", Name: "Ana"}},
		Subject:     "Your weekly progress",
		Text:        "Overall band 6.5",
		HTML:        "<p>Overall band 6.5</p>",
		Categories:  []string{"progress_digest"},
		Attachments: []Attachment{{Filename: "progress.xlsx", MIMEType: "application/octet-stream", Content: []byte("xlsx")}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.StatusCode != http.StatusAccepted || res.MessageID != "msg-1" {
		t.Fatalf("result: got %+v", res)
	}
	from, _ := payload["from"].(map[string]any)
	if from["email"] != "coach@example.com" {
		t.Fatalf("from: got %v", payload["from"])
	}
	content, _ := payload["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("content: got %v", payload["content"])
	}
	if first, _ := content[0].(map[string]any); first["type"] != "text/plain" {
		t.Fatalf("content order: got %v", content)
	}
	if atts, _ := payload["attachments"].([]any); len(atts) != 1 {
		t.Fatalf("attachments: got %v", payload["attachments"])
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, _ := New(logger.Nop(), Config{APIKey: "k", Host: srv.URL, FromEmail: "a@b.c", Retries: 2, Timeout: 5 * time.Second})
	if _, err := c.Send(t.Context(), Email{To: []Address{{Email: "x@y.z"}}, Subject: "s", Text: "t"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls: got %d want 2", n)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid from address"}]}`))
	}))
	defer srv.Close()

	c, _ := New(logger.Nop(), Config{APIKey: "k", Host: srv.URL, FromEmail: "a@b.c", Retries: 3})
	_, err := c.Send(t.Context(), Email{To: []Address{{Email: "x@y.z"}}, Subject: "s", Text: "t"})
	if err == nil || !strings.Contains(err.Error(), "invalid from address") {
		t.Fatalf("err: got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls: got %d want 1", n)
	}
}

func TestBuildValidates(t *testing.T) {
	c := &client{log: logger.Nop(), cfg: Config{FromEmail: "a@b.c"}}
	cases := []struct {
		name string
		msg  Email
	}{
		{"no recipient", Email{Subject: "s", Text: "t"}},
		{"no subject", Email{To: []Address{{Email: "x@y.z"}}, Text: "t"}},
		{"no body", Email{To: []Address{{Email: "x@y.z"}}, Subject: "s"}},
		{"empty attachment", Email{To: []Address{{Email: "x@y.z"}}, Subject: "s", Text: "t", Attachments: []Attachment{{Filename: "f"}}}},
	}
	for _, tc := range cases {
		if _, err := c.Build(tc.msg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
