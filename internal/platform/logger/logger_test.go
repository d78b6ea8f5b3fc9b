package logger

import (
	"strings"
	"testing"
)

func TestScrubRedactsSecretsAndHashesIDs(t *testing.T) {
	out := scrub([]interface{}{
		"access_token", "abc",
		"user_id", "7b0c1e3c-0000-4000-8000-000000000001",
		"stage", "transcribe",
		"payload", map[string]interface{}{"password": "hunter22", "skill": "speaking"},
	})
	if len(out) != 8 {
		t.Fatalf("scrub: got %d items want 8", len(out))
	}
	if out[1] != redacted {
		t.Fatalf("access_token: got %v want %v", out[1], redacted)
	}
	hashed, _ := out[3].(string)
	if !strings.HasPrefix(hashed, "hash:") || len(hashed) != len("hash:")+12 {
		t.Fatalf("user_id: got %q", hashed)
	}
	if out[5] != "transcribe" {
		t.Fatalf("stage: got %v", out[5])
	}
	m, ok := out[7].(map[string]interface{})
	if !ok {
		t.Fatalf("payload: got %T", out[7])
	}
	if m["password"] != redacted || m["skill"] != "speaking" {
		t.Fatalf("payload: got %+v", m)
	}
}

func TestScrubRedactsJWTLookingValues(t *testing.T) {
	jwt := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig"
	out := scrub([]interface{}{"value", jwt})
	if out[1] != redacted {
		t.Fatalf("got %v want %v", out[1], redacted)
	}
}

func TestScrubKeepsDanglingKey(t *testing.T) {
	out := scrub([]interface{}{"stage", "ocr", "orphan"})
	if len(out) != 3 || out[2] != "orphan" {
		t.Fatalf("got %+v", out)
	}
}
