package observability

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", 200, time.Second)
	m.ObserveBand("writing", 6.5)
	m.ObserveJob("writing_evaluate", "succeeded", time.Second)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("nil ServeHTTP: got %d want 503", rec.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("POST", "/api/writing", 202, 30*time.Millisecond)
	m.ObserveAPI("POST", "/api/writing", 202, 40*time.Millisecond)
	m.ObserveBand("writing", 6.5)
	m.ObserveLLMRequest("gpt-4o-mini", "/v1/responses", "200", 2*time.Second, 100, 20)

	if got := m.apiRequests.Value("POST", "/api/writing", "202"); got != 2 {
		t.Fatalf("api requests: got %v want 2", got)
	}
	if got := m.bandAwarded.Count("writing"); got != 1 {
		t.Fatalf("band count: got %d want 1", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`ielts_api_requests_total{method="POST",route="/api/writing",status="202"} 2`,
		`ielts_band_awarded_bucket{skill="writing",le="6.5"} 1`,
		`ielts_band_awarded_bucket{skill="writing",le="6"} 0`,
		`ielts_llm_tokens_total{model="gpt-4o-mini",direction="input"} 100`,
		"# TYPE ielts_job_queue_depth gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q in:\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("got %s", got)
	}
}
