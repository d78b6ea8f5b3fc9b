package tutor

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

type TutorThreadRepo interface {
	Create(dbc dbctx.Context, thread *types.TutorThread) error
	GetForUser(dbc dbctx.Context, userID, threadID uuid.UUID) (*types.TutorThread, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.TutorThread, error)
	// Delete soft-deletes the thread and its messages together.
	Delete(dbc dbctx.Context, userID, threadID uuid.UUID) (bool, error)
}

type TutorMessageRepo interface {
	// Append assigns the next per-thread sequence number and inserts msg.
	Append(dbc dbctx.Context, msg *types.TutorMessage) error
	ListRecent(dbc dbctx.Context, threadID uuid.UUID, limit int) ([]*types.TutorMessage, error)
}

type tutorThreadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTutorThreadRepo(db *gorm.DB, baseLog *logger.Logger) TutorThreadRepo {
	return &tutorThreadRepo{db: db, log: baseLog.With("repo", "TutorThreadRepo")}
}

func (r *tutorThreadRepo) Create(dbc dbctx.Context, thread *types.TutorThread) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if thread.NextSeq == 0 {
		thread.NextSeq = 1
	}
	return transaction.WithContext(dbc.Ctx).Create(thread).Error
}

func (r *tutorThreadRepo) GetForUser(dbc dbctx.Context, userID, threadID uuid.UUID) (*types.TutorThread, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var t types.TutorThread
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", threadID, userID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tutorThreadRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.TutorThread, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []*types.TutorThread
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *tutorThreadRepo) Delete(dbc dbctx.Context, userID, threadID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	deleted := false
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		res := txx.Where("id = ? AND user_id = ?", threadID, userID).Delete(&types.TutorThread{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return txx.Where("thread_id = ?", threadID).Delete(&types.TutorMessage{}).Error
	})
	return deleted, err
}

type tutorMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTutorMessageRepo(db *gorm.DB, baseLog *logger.Logger) TutorMessageRepo {
	return &tutorMessageRepo{db: db, log: baseLog.With("repo", "TutorMessageRepo")}
}

func (r *tutorMessageRepo) Append(dbc dbctx.Context, msg *types.TutorMessage) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var thread types.TutorThread
		if err := txx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", msg.ThreadID).
			First(&thread).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		msg.Seq = thread.NextSeq
		if err := txx.Model(&types.TutorThread{}).
			Where("id = ?", thread.ID).
			Updates(map[string]interface{}{
				"next_seq":        thread.NextSeq + 1,
				"last_message_at": now,
				"updated_at":      now,
			}).Error; err != nil {
			return err
		}
		return txx.Create(msg).Error
	})
}

// ListRecent returns up to limit of the newest messages in ascending order.
func (r *tutorMessageRepo) ListRecent(dbc dbctx.Context, threadID uuid.UUID, limit int) ([]*types.TutorMessage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.TutorMessage
	if err := transaction.WithContext(dbc.Ctx).
		Where("thread_id = ?", threadID).
		Order("seq DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
