package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProgress is one row per (user, skill).
type UserProgress struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_user_progress_user_skill,priority:1" json:"user_id"`
	Skill           string         `gorm:"column:skill;not null;uniqueIndex:idx_user_progress_user_skill,priority:2" json:"skill"`
	CurrentBand     float64        `gorm:"column:current_band;not null;default:0" json:"current_band"`
	BestBand        float64        `gorm:"column:best_band;not null;default:0" json:"best_band"`
	AvgBand         float64        `gorm:"column:avg_band;not null;default:0" json:"avg_band"`
	Attempts        int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	WeakestCriteria string         `gorm:"column:weakest_criteria" json:"weakest_criteria,omitempty"`
	WeakestBand     *float64       `gorm:"column:weakest_band" json:"weakest_band,omitempty"`
	LastPracticedAt *time.Time     `gorm:"column:last_practiced_at" json:"last_practiced_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserProgress) TableName() string { return "user_progress" }

func (p *UserProgress) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
