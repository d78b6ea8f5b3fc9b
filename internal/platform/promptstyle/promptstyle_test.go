package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystemIsIdempotent(t *testing.T) {
	once := ApplySystem("Score this essay.", ModeJSON)
	if !strings.HasPrefix(once, marker) || !strings.HasSuffix(once, "Score this essay.") {
		t.Fatalf("unexpected prompt: %q", once)
	}
	if !strings.Contains(once, "JSON object") {
		t.Fatalf("json mode rule missing: %q", once)
	}
	if twice := ApplySystem(once, ModeJSON); twice != once {
		t.Fatalf("second apply changed prompt")
	}
	if got := ApplySystem("   ", ModeText); got != "" {
		t.Fatalf("blank prompt: got %q", got)
	}
}
