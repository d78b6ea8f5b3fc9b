package analytics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type SnapshotRepo interface {
	// Upsert inserts or overwrites rows keyed by (user_id, day, skill).
	Upsert(dbc dbctx.Context, rows []*types.AnalyticsSnapshot) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID, fromDay, toDay string) ([]*types.AnalyticsSnapshot, error)
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{db: db, log: baseLog.With("repo", "SnapshotRepo")}
}

func (r *snapshotRepo) Upsert(dbc dbctx.Context, rows []*types.AnalyticsSnapshot) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		row.UpdatedAt = now
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}, {Name: "skill"}},
			DoUpdates: clause.AssignmentColumns([]string{"attempts", "avg_band", "minutes_practiced", "updated_at"}),
		}).
		Create(&rows).Error
}

// ListByUser returns snapshots with fromDay <= day <= toDay. Days are
// YYYY-MM-DD strings so lexical comparison is chronological.
func (r *snapshotRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, fromDay, toDay string) ([]*types.AnalyticsSnapshot, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Where("user_id = ?", userID)
	if fromDay != "" {
		q = q.Where("day >= ?", fromDay)
	}
	if toDay != "" {
		q = q.Where("day <= ?", toDay)
	}
	var out []*types.AnalyticsSnapshot
	if err := q.Order("day ASC, skill ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
