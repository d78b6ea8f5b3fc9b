package content

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

// Filter narrows List. Zero values are ignored.
type Filter struct {
	Skill         string
	Kind          string
	Module        string
	MinDifficulty *float64
	MaxDifficulty *float64
	PublishedOnly bool
	Search        string
	Limit         int
	Offset        int
}

type ContentItemRepo interface {
	Create(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentItem, error)
	List(dbc dbctx.Context, f Filter) ([]*types.ContentItem, int64, error)
	Nearest(dbc dbctx.Context, skill, module string, difficulty float64, exclude []uuid.UUID, limit int) ([]*types.ContentItem, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return &contentItemRepo{db: db, log: baseLog.With("repo", "ContentItemRepo")}
}

func (r *contentItemRepo) Create(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*types.ContentItem{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var item types.ContentItem
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *contentItemRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentItem
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) List(dbc dbctx.Context, f Filter) ([]*types.ContentItem, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.ContentItem{})
	if f.Skill != "" {
		q = q.Where("skill = ?", f.Skill)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Module != "" {
		q = q.Where("module = ?", f.Module)
	}
	if f.MinDifficulty != nil {
		q = q.Where("difficulty >= ?", *f.MinDifficulty)
	}
	if f.MaxDifficulty != nil {
		q = q.Where("difficulty <= ?", *f.MaxDifficulty)
	}
	if f.PublishedOnly {
		q = q.Where("published = ?", true)
	}
	if f.Search != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []*types.ContentItem
	if err := q.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Nearest returns published items ordered by distance from difficulty.
func (r *contentItemRepo) Nearest(dbc dbctx.Context, skill, module string, difficulty float64, exclude []uuid.UUID, limit int) ([]*types.ContentItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 1
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("skill = ? AND published = ?", skill, true)
	if module != "" {
		q = q.Where("module = ?", module)
	}
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var out []*types.ContentItem
	err := q.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                "ABS(difficulty - ?) ASC, created_at ASC",
		Vars:               []interface{}{difficulty},
		WithoutParentheses: true,
	}}).Limit(limit).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.ContentItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *contentItemRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.ContentItem{})
	return res.RowsAffected > 0, res.Error
}
