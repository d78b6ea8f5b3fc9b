package learning

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/learning"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type LearningPathRepo interface {
	Create(dbc dbctx.Context, path *types.LearningPath) error
	GetActive(dbc dbctx.Context, userID uuid.UUID) (*types.LearningPath, error)
	GetForUser(dbc dbctx.Context, userID, pathID uuid.UUID) (*types.LearningPath, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.LearningPath, error)
	ArchiveActive(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	UpdateStatus(dbc dbctx.Context, pathID uuid.UUID, status string) error
	GetStep(dbc dbctx.Context, pathID, stepID uuid.UUID) (*types.LearningPathStep, error)
	UpdateStep(dbc dbctx.Context, stepID uuid.UUID, updates map[string]interface{}) error
	CountPending(dbc dbctx.Context, pathID uuid.UUID) (int64, error)
}

type learningPathRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningPathRepo(db *gorm.DB, baseLog *logger.Logger) LearningPathRepo {
	return &learningPathRepo{db: db, log: baseLog.With("repo", "LearningPathRepo")}
}

// Create inserts the path and its steps in one statement batch.
func (r *learningPathRepo) Create(dbc dbctx.Context, path *types.LearningPath) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(path).Error
}

func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *learningPathRepo) GetActive(dbc dbctx.Context, userID uuid.UUID) (*types.LearningPath, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.LearningPath
	err := transaction.WithContext(dbc.Ctx).
		Preload("Steps", orderedSteps).
		Where("user_id = ? AND status = ?", userID, learning.PathActive).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *learningPathRepo) GetForUser(dbc dbctx.Context, userID, pathID uuid.UUID) (*types.LearningPath, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.LearningPath
	err := transaction.WithContext(dbc.Ctx).
		Preload("Steps", orderedSteps).
		Where("id = ? AND user_id = ?", pathID, userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *learningPathRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.LearningPath, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var out []*types.LearningPath
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *learningPathRepo) ArchiveActive(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.LearningPath{}).
		Where("user_id = ? AND status = ?", userID, learning.PathActive).
		Updates(map[string]interface{}{"status": learning.PathArchived, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *learningPathRepo) UpdateStatus(dbc dbctx.Context, pathID uuid.UUID, status string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.LearningPath{}).
		Where("id = ?", pathID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *learningPathRepo) GetStep(dbc dbctx.Context, pathID, stepID uuid.UUID) (*types.LearningPathStep, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.LearningPathStep
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND path_id = ?", stepID, pathID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *learningPathRepo) UpdateStep(dbc dbctx.Context, stepID uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.LearningPathStep{}).
		Where("id = ?", stepID).
		Updates(updates).Error
}

func (r *learningPathRepo) CountPending(dbc dbctx.Context, pathID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.LearningPathStep{}).
		Where("path_id = ? AND status = ?", pathID, learning.StepPending).
		Count(&n).Error
	return n, err
}
