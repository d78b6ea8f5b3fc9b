package progress

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type UserProgressRepo interface {
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserProgress, error)
	GetForUpdate(dbc dbctx.Context, userID uuid.UUID, skill string) (*types.UserProgress, error)
	// EnsureRow inserts an empty (user, skill) row unless one exists.
	EnsureRow(dbc dbctx.Context, userID uuid.UUID, skill string) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type userProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProgressRepo(db *gorm.DB, baseLog *logger.Logger) UserProgressRepo {
	return &userProgressRepo{db: db, log: baseLog.With("repo", "UserProgressRepo")}
}

func (r *userProgressRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UserProgress
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("skill ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetForUpdate row-locks the (user, skill) row when called inside a
// transaction. It returns nil when the row does not exist yet.
func (r *userProgressRepo) GetForUpdate(dbc dbctx.Context, userID uuid.UUID, skill string) (*types.UserProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.UserProgress
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND skill = ?", userID, skill).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *userProgressRepo) EnsureRow(dbc dbctx.Context, userID uuid.UUID, skill string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "skill"}},
			DoNothing: true,
		}).
		Create(&types.UserProgress{UserID: userID, Skill: skill}).Error
}

func (r *userProgressRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.UserProgress{}).
		Where("id = ?", id).
		Updates(updates).Error
}
