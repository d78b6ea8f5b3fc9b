package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

// SSEClient is one open event stream. A user may hold several.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}
