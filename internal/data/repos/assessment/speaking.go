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

type SpeakingSessionRepo interface {
	Create(dbc dbctx.Context, s *types.SpeakingSession) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SpeakingSession, error)
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.SpeakingSession, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.SpeakingSession, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDelete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error)
	ListPurgeable(dbc dbctx.Context, deletedBefore time.Time, limit int) ([]*types.SpeakingSession, error)
	HardDelete(dbc dbctx.Context, ids []uuid.UUID) error
}

type speakingSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpeakingSessionRepo(db *gorm.DB, baseLog *logger.Logger) SpeakingSessionRepo {
	return &speakingSessionRepo{db: db, log: baseLog.With("repo", "SpeakingSessionRepo")}
}

func (r *speakingSessionRepo) Create(dbc dbctx.Context, s *types.SpeakingSession) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(s).Error
}

func (r *speakingSessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SpeakingSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.SpeakingSession
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *speakingSessionRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.SpeakingSession, error) {
	s, err := r.GetByID(dbc, id)
	if err != nil || s == nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, nil
	}
	return s, nil
}

func (r *speakingSessionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.SpeakingSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SpeakingSession
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

func (r *speakingSessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.SpeakingSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *speakingSessionRepo) SoftDelete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.SpeakingSession{})
	return res.RowsAffected > 0, res.Error
}

// ListPurgeable returns soft-deleted sessions whose deletion is older than
// deletedBefore.
func (r *speakingSessionRepo) ListPurgeable(dbc dbctx.Context, deletedBefore time.Time, limit int) ([]*types.SpeakingSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SpeakingSession
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

func (r *speakingSessionRepo) HardDelete(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&types.SpeakingSession{}).Error
}
