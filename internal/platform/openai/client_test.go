package openai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", srv.URL)
	t.Setenv("OPENAI_MODEL", "gpt-test")
	t.Setenv("OPENAI_MAX_RETRIES", "1")
	c, err := NewClient(logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func outputJSON(text string) string {
	raw, _ := json.Marshal(text)
	return fmt.Sprintf(`{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":%s}]}],"usage":{"input_tokens":12,"output_tokens":7}}`, raw)
}

func TestGenerateJSONSendsSchemaAndDecodes(t *testing.T) {
	var got responsesRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth header: got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, outputJSON(`{"band":6.5,"feedback":"ok"}`))
	})

	schema := map[string]any{"type": "object"}
	obj, err := c.GenerateJSON(t.Context(), "You are an examiner.", "Score this.", "writing_score", schema)
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if obj["band"] != 6.5 {
		t.Fatalf("band: got %v want 6.5", obj["band"])
	}
	if got.Text == nil || got.Text.Format["name"] != "writing_score" || got.Text.Format["strict"] != true {
		t.Fatalf("format: got %+v", got.Text)
	}
	if len(got.Input) != 2 || got.Input[0].Role != "system" || !strings.Contains(got.Input[0].Content, "You are an examiner.") {
		t.Fatalf("input: got %+v", got.Input)
	}

	type score struct {
		Band     float64 `json:"band"`
		Feedback string  `json:"feedback"`
	}
	s, err := Decode[score](obj)
	if err != nil || s.Band != 6.5 || s.Feedback != "ok" {
		t.Fatalf("Decode: got %+v err %v", s, err)
	}
}

func TestTemperatureDroppedWhenModelRejectsIt(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		atomic.AddInt32(&calls, 1)
		if _, ok := req["temperature"]; ok {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`)
			return
		}
		fmt.Fprint(w, outputJSON("hello"))
	})

	text, err := c.GenerateText(t.Context(), "sys", "hi")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "hello" {
		t.Fatalf("text: got %q want hello", text)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls: got %d want 2", n)
	}
	// the model is remembered, so the next call goes straight through
	if _, err := c.GenerateText(t.Context(), "sys", "again"); err != nil {
		t.Fatalf("second GenerateText: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("calls after second: got %d want 3", n)
	}
}

func TestRetriesOnServerError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, outputJSON("fine"))
	})
	text, err := c.GenerateText(t.Context(), "sys", "hi")
	if err != nil || text != "fine" {
		t.Fatalf("GenerateText: got %q err %v", text, err)
	}
}

func TestNonRetryableErrorSurfacesStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	})
	_, err := c.GenerateText(t.Context(), "sys", "hi")
	he, ok := err.(*HTTPError)
	if !ok || he.HTTPStatusCode() != http.StatusUnauthorized {
		t.Fatalf("err: got %v", err)
	}
}

func TestStreamChatForwardsDeltas(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req responsesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream || len(req.Input) != 3 {
			t.Errorf("request: got stream=%v inputs=%d", req.Stream, len(req.Input))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: response.output_text.delta\ndata: {\"type\":\"response.output_text.delta\",\"delta\":\"Use \"}\n\n")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "event: response.output_text.delta\ndata: {\"type\":\"response.output_text.delta\",\"delta\":\"linking words.\"}\n\n")
		fmt.Fprint(w, "event: response.completed\ndata: {\"type\":\"response.completed\",\"response\":{\"usage\":{\"input_tokens\":5,\"output_tokens\":3}}}\n\n")
	})

	var deltas []string
	full, err := c.StreamChat(t.Context(), "tutor", []Message{
		{Role: "user", Content: "How do I improve coherence?"},
		{Role: "assistant", Content: "Which task?"},
	}, func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if full != "Use linking words." {
		t.Fatalf("full: got %q", full)
	}
	if len(deltas) != 2 {
		t.Fatalf("deltas: got %v", deltas)
	}
}

func TestReadSSEJoinsMultilineData(t *testing.T) {
	body := "event: a\ndata: one\ndata: two\n\ndata: tail"
	var got []string
	err := readSSE(strings.NewReader(body), func(event, data string) error {
		got = append(got, event+"="+data)
		return nil
	})
	if err != nil {
		t.Fatalf("readSSE: %v", err)
	}
	if len(got) != 2 || got[0] != "a=one\ntwo" || got[1] != "=tail" {
		t.Fatalf("events: got %q", got)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(logger.Nop()); err == nil {
		t.Fatalf("expected error without key")
	}
}
