package assessment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

// Attempt is implemented by the reading and listening attempt tables.
type Attempt interface {
	types.ReadingTest | types.ListeningTest
}

type ObjectiveTestRepo[T Attempt] interface {
	Create(dbc dbctx.Context, attempt *T) error
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*T, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*T, error)
	CountByContentItem(dbc dbctx.Context, userID, contentItemID uuid.UUID) (int64, error)
}

type ReadingTestRepo = ObjectiveTestRepo[types.ReadingTest]
type ListeningTestRepo = ObjectiveTestRepo[types.ListeningTest]

type objectiveTestRepo[T Attempt] struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReadingTestRepo(db *gorm.DB, baseLog *logger.Logger) ReadingTestRepo {
	return &objectiveTestRepo[types.ReadingTest]{db: db, log: baseLog.With("repo", "ReadingTestRepo")}
}

func NewListeningTestRepo(db *gorm.DB, baseLog *logger.Logger) ListeningTestRepo {
	return &objectiveTestRepo[types.ListeningTest]{db: db, log: baseLog.With("repo", "ListeningTestRepo")}
}

func (r *objectiveTestRepo[T]) Create(dbc dbctx.Context, attempt *T) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if attempt == nil {
		return fmt.Errorf("nil attempt")
	}
	return transaction.WithContext(dbc.Ctx).Create(attempt).Error
}

func (r *objectiveTestRepo[T]) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*T, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out T
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *objectiveTestRepo[T]) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*T, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*T
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

func (r *objectiveTestRepo[T]) CountByContentItem(dbc dbctx.Context, userID, contentItemID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	var model T
	if err := transaction.WithContext(dbc.Ctx).
		Model(&model).
		Where("user_id = ? AND content_item_id = ?", userID, contentItemID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
