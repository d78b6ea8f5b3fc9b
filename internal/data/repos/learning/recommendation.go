package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/learning"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type RecommendationRepo interface {
	ReplaceOpen(dbc dbctx.Context, userID uuid.UUID, recs []*types.Recommendation) ([]*types.Recommendation, error)
	ListOpen(dbc dbctx.Context, userID uuid.UUID) ([]*types.Recommendation, error)
	UpdateStatus(dbc dbctx.Context, userID, id uuid.UUID, status string) (bool, error)
}

type recommendationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecommendationRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationRepo {
	return &recommendationRepo{db: db, log: baseLog.With("repo", "RecommendationRepo")}
}

// ReplaceOpen deletes the user's open recommendations and inserts recs.
// Dismissed and done rows are kept as history.
func (r *recommendationRepo) ReplaceOpen(dbc dbctx.Context, userID uuid.UUID, recs []*types.Recommendation) ([]*types.Recommendation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Unscoped().
			Where("user_id = ? AND status = ?", userID, learning.RecommendationOpen).
			Delete(&types.Recommendation{}).Error; err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		for _, rec := range recs {
			rec.UserID = userID
			if rec.Status == "" {
				rec.Status = learning.RecommendationOpen
			}
		}
		return txx.Create(&recs).Error
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *recommendationRepo) ListOpen(dbc dbctx.Context, userID uuid.UUID) ([]*types.Recommendation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Recommendation
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND status = ?", userID, learning.RecommendationOpen).
		Order("priority DESC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recommendationRepo) UpdateStatus(dbc dbctx.Context, userID, id uuid.UUID, status string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Recommendation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}
