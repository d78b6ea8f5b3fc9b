package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/realtime"
)

// ScoreRecorder is the shared tail of every scoring flow. Record runs inside
// the caller's transaction; Announce runs after commit.
type ScoreRecorder interface {
	Record(dbc dbctx.Context, a Attempt) (*types.UserProgress, error)
	Announce(ctx context.Context, a Attempt, entityType string, entityID uuid.UUID)
}

type scoreRecorder struct {
	log      *logger.Logger
	progress ProgressService
	recs     RecommendationService
	emit     SSEEmitter
}

func NewScoreRecorder(baseLog *logger.Logger, progress ProgressService, recs RecommendationService, emit SSEEmitter) ScoreRecorder {
	return &scoreRecorder{
		log:      baseLog.With("service", "ScoreRecorder"),
		progress: progress,
		recs:     recs,
		emit:     emit,
	}
}

func (r *scoreRecorder) Record(dbc dbctx.Context, a Attempt) (*types.UserProgress, error) {
	return r.progress.Record(dbc, a)
}

func (r *scoreRecorder) Announce(ctx context.Context, a Attempt, entityType string, entityID uuid.UUID) {
	if r.emit != nil {
		r.emit.Emit(ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(a.UserID),
			Event:   realtime.SSEEventScoreReady,
			Data: map[string]any{
				"skill":       a.Skill,
				"band":        a.Band,
				"entity_type": entityType,
				"entity_id":   entityID.String(),
			},
		})
	}
	if r.recs == nil {
		return
	}
	recs, err := r.recs.RefreshFor(ctx, a.UserID)
	if err != nil {
		r.log.Warn("Refresh recommendations failed", "user_id", a.UserID, "error", err)
		return
	}
	if r.emit != nil {
		r.emit.Emit(ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(a.UserID),
			Event:   realtime.SSEEventRecommendationsUpdated,
			Data:    map[string]any{"recommendations": recs},
		})
	}
}
