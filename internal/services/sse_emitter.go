package services

import (
	"context"

	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/realtime"
	"github.com/yungbote/ielts-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

// HubEmitter delivers to streams connected to this instance only.
type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

// BusEmitter publishes through Redis so every instance's hub receives the
// message. A failed publish falls back to the local hub.
type BusEmitter struct {
	Bus bus.Bus
	Hub *realtime.SSEHub
	Log *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.Bus.Publish(ctx, msg); err != nil {
		if e.Log != nil {
			e.Log.Warn("SSE bus publish failed; delivering locally", "event", string(msg.Event), "error", err)
		}
		if e.Hub != nil {
			e.Hub.Broadcast(msg)
		}
	}
}
