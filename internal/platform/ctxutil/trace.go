package ctxutil

import "context"

type traceDataKey struct{}

// TraceData follows a request into the jobs it enqueues so worker logs can be
// joined with the API log line that caused them.
type TraceData struct {
	TraceID   string
	RequestID string
}

const (
	payloadTraceID   = "trace_id"
	payloadRequestID = "request_id"
)

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}

// LogFields returns the non-empty ids as logger key/value pairs.
func (td *TraceData) LogFields() []interface{} {
	if td == nil {
		return nil
	}
	var kv []interface{}
	if td.TraceID != "" {
		kv = append(kv, payloadTraceID, td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, payloadRequestID, td.RequestID)
	}
	return kv
}

// StampPayload copies the ids on ctx into a job payload without overwriting
// keys the caller already set.
func StampPayload(ctx context.Context, payload map[string]any) {
	td := GetTraceData(ctx)
	if td == nil || payload == nil {
		return
	}
	if _, ok := payload[payloadTraceID]; !ok && td.TraceID != "" {
		payload[payloadTraceID] = td.TraceID
	}
	if _, ok := payload[payloadRequestID]; !ok && td.RequestID != "" {
		payload[payloadRequestID] = td.RequestID
	}
}

// FromPayload is the inverse of StampPayload. ctx is returned unchanged when
// the payload carries no ids.
func FromPayload(ctx context.Context, payload map[string]any) context.Context {
	traceID, _ := payload[payloadTraceID].(string)
	reqID, _ := payload[payloadRequestID].(string)
	if traceID == "" && reqID == "" {
		return ctx
	}
	return WithTraceData(ctx, &TraceData{TraceID: traceID, RequestID: reqID})
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
