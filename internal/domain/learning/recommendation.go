package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RecommendationPractice = "practice"
	RecommendationReview   = "review"
	RecommendationStrategy = "strategy"

	RecommendationOpen      = "open"
	RecommendationDismissed = "dismissed"
	RecommendationDone      = "done"
)

type Recommendation struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Skill         string         `gorm:"column:skill;not null" json:"skill"`
	ContentItemID *uuid.UUID     `gorm:"type:uuid;column:content_item_id" json:"content_item_id,omitempty"`
	Kind          string         `gorm:"column:kind;not null" json:"kind"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	Reason        string         `gorm:"column:reason;type:text" json:"reason"`
	Priority      float64        `gorm:"column:priority;not null;index" json:"priority"`
	Status        string         `gorm:"column:status;not null;index" json:"status"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Recommendation) TableName() string { return "recommendation" }

func (r *Recommendation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
