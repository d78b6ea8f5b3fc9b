package assessment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type WritingSubmissionRepo interface {
	Create(dbc dbctx.Context, w *types.WritingSubmission) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WritingSubmission, error)
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.WritingSubmission, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.WritingSubmission, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDelete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error)
	ListPurgeable(dbc dbctx.Context, deletedBefore time.Time, limit int) ([]*types.WritingSubmission, error)
	HardDelete(dbc dbctx.Context, ids []uuid.UUID) error
}

type writingSubmissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWritingSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) WritingSubmissionRepo {
	return &writingSubmissionRepo{db: db, log: baseLog.With("repo", "WritingSubmissionRepo")}
}

func (r *writingSubmissionRepo) Create(dbc dbctx.Context, w *types.WritingSubmission) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(w).Error
}

func (r *writingSubmissionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WritingSubmission, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var w types.WritingSubmission
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *writingSubmissionRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.WritingSubmission, error) {
	w, err := r.GetByID(dbc, id)
	if err != nil || w == nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, nil
	}
	return w, nil
}

func (r *writingSubmissionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.WritingSubmission, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WritingSubmission
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *writingSubmissionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.WritingSubmission{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *writingSubmissionRepo) SoftDelete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.WritingSubmission{})
	return res.RowsAffected > 0, res.Error
}

// ListPurgeable returns soft-deleted submissions whose deletion is older than
// deletedBefore.
func (r *writingSubmissionRepo) ListPurgeable(dbc dbctx.Context, deletedBefore time.Time, limit int) ([]*types.WritingSubmission, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WritingSubmission
	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", deletedBefore).
		Order("deleted_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *writingSubmissionRepo) HardDelete(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.WritingSubmission{}).Error
}
