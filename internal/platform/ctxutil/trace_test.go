package ctxutil

import (
	"context"
	"testing"
)

func TestStampPayloadRoundTrip(t *testing.T) {
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t-1", RequestID: "r-1"})
	payload := map[string]any{"request_id": "caller"}
	StampPayload(ctx, payload)
	if payload["trace_id"] != "t-1" || payload["request_id"] != "caller" {
		t.Fatalf("StampPayload: got %v", payload)
	}

	restored := GetTraceData(FromPayload(context.Background(), payload))
	if restored == nil || restored.TraceID != "t-1" || restored.RequestID != "caller" {
		t.Fatalf("FromPayload: got %+v", restored)
	}

	bare := context.Background()
	if got := FromPayload(bare, map[string]any{"kind": "welcome"}); got != bare {
		t.Fatalf("FromPayload without ids: got a new context")
	}
	StampPayload(bare, payload)
}

func TestLogFields(t *testing.T) {
	var nilTD *TraceData
	if got := nilTD.LogFields(); got != nil {
		t.Fatalf("nil LogFields: got %v", got)
	}
	got := (&TraceData{RequestID: "r"}).LogFields()
	if len(got) != 2 || got[0] != "request_id" || got[1] != "r" {
		t.Fatalf("LogFields: got %v", got)
	}
}
