package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PathActive    = "active"
	PathArchived  = "archived"
	PathCompleted = "completed"

	StepPending   = "pending"
	StepCompleted = "completed"
	StepSkipped   = "skipped"
)

type LearningPath struct {
	ID         uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	Title      string              `gorm:"column:title;not null" json:"title"`
	TargetBand float64             `gorm:"column:target_band;not null" json:"target_band"`
	StartBand  float64             `gorm:"column:start_band;not null;default:0" json:"start_band"`
	Status     string              `gorm:"column:status;not null;index" json:"status"`
	Steps      []*LearningPathStep `gorm:"foreignKey:PathID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
	CreatedAt  time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time           `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt      `gorm:"index" json:"deleted_at,omitempty"`
}

func (LearningPath) TableName() string { return "learning_path" }

func (p *LearningPath) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type LearningPathStep struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PathID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"path_id"`
	Position      int            `gorm:"column:position;not null" json:"position"`
	Skill         string         `gorm:"column:skill;not null" json:"skill"`
	ContentItemID *uuid.UUID     `gorm:"type:uuid;column:content_item_id" json:"content_item_id,omitempty"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	Description   string         `gorm:"column:description;type:text" json:"description"`
	Status        string         `gorm:"column:status;not null" json:"status"`
	CompletedAt   *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LearningPathStep) TableName() string { return "learning_path_step" }

func (s *LearningPathStep) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
