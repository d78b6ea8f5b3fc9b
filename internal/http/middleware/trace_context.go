package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
	maxInboundIDLen = 128
)

// AttachTraceContext runs after otelgin so an active span wins over any
// client-sent X-Trace-Id. The ids are echoed back on the response.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		td := &ctxutil.TraceData{
			TraceID:   spanTraceID(c),
			RequestID: inboundID(c, headerRequestID),
		}
		if td.TraceID == "" {
			td.TraceID = inboundID(c, headerTraceID)
		}
		if td.TraceID == "" {
			td.TraceID = uuid.NewString()
		}
		if td.RequestID == "" {
			td.RequestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Header(headerTraceID, td.TraceID)
		c.Header(headerRequestID, td.RequestID)
		c.Next()
	}
}

func spanTraceID(c *gin.Context) string {
	sc := trace.SpanContextFromContext(c.Request.Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// inboundID drops oversized values instead of logging them.
func inboundID(c *gin.Context, header string) string {
	v := strings.TrimSpace(c.GetHeader(header))
	if len(v) > maxInboundIDLen {
		return ""
	}
	return v
}
