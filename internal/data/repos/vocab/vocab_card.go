package vocab

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type VocabCardRepo interface {
	Create(dbc dbctx.Context, card *types.VocabCard) error
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.VocabCard, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.VocabCard, error)
	ListDue(dbc dbctx.Context, userID uuid.UUID, now time.Time, limit int) ([]*types.VocabCard, error)
	CountDue(dbc dbctx.Context, userID uuid.UUID, now time.Time) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error)
}

type vocabCardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVocabCardRepo(db *gorm.DB, baseLog *logger.Logger) VocabCardRepo {
	return &vocabCardRepo{db: db, log: baseLog.With("repo", "VocabCardRepo")}
}

func (r *vocabCardRepo) Create(dbc dbctx.Context, card *types.VocabCard) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(card).Error
}

func (r *vocabCardRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.VocabCard, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.VocabCard
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *vocabCardRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.VocabCard, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.VocabCard
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("word ASC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *vocabCardRepo) ListDue(dbc dbctx.Context, userID uuid.UUID, now time.Time, limit int) ([]*types.VocabCard, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []*types.VocabCard
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND next_review_at <= ?", userID, now.UTC()).
		Order("next_review_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *vocabCardRepo) CountDue(dbc dbctx.Context, userID uuid.UUID, now time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.VocabCard{}).
		Where("user_id = ? AND next_review_at <= ?", userID, now.UTC()).
		Count(&n).Error
	return n, err
}

func (r *vocabCardRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.VocabCard{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *vocabCardRepo) Delete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	// Hard delete so the (user, word) unique index frees up.
	res := transaction.WithContext(dbc.Ctx).Unscoped().
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.VocabCard{})
	return res.RowsAffected > 0, res.Error
}
