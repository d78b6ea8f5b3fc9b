package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr int

func (s statusErr) Error() string       { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatusCode() int { return int(s) }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"429", statusErr(429), true},
		{"wrapped 503", fmt.Errorf("call: %w", statusErr(503)), true},
		{"400", statusErr(400), false},
		{"canceled", context.Canceled, false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")
	if got := RetryAfter(h, time.Second, 5*time.Second); got != 5*time.Second {
		t.Fatalf("capped: got %v", got)
	}
	if got := RetryAfter(h, time.Second, 0); got != 7*time.Second {
		t.Fatalf("uncapped: got %v", got)
	}
	if got := RetryAfter(nil, 2*time.Second, 0); got != 2*time.Second {
		t.Fatalf("fallback: got %v", got)
	}
}

func TestBackoffAndJitter(t *testing.T) {
	if got := Backoff(3, time.Second, time.Minute); got != 4*time.Second {
		t.Fatalf("Backoff(3): got %v", got)
	}
	if got := Backoff(10, time.Second, 5*time.Second); got != 5*time.Second {
		t.Fatalf("Backoff cap: got %v", got)
	}
	for i := 0; i < 50; i++ {
		j := Jitter(10 * time.Second)
		if j < 8*time.Second || j > 12*time.Second {
			t.Fatalf("Jitter out of range: %v", j)
		}
	}
}
