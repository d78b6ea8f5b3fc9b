package vocab

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VocabCard struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_vocab_card_user_word,priority:1" json:"user_id"`
	Word           string         `gorm:"column:word;not null;uniqueIndex:idx_vocab_card_user_word,priority:2" json:"word"`
	Definition     string         `gorm:"column:definition;type:text" json:"definition"`
	Example        string         `gorm:"column:example;type:text" json:"example,omitempty"`
	Topic          string         `gorm:"column:topic" json:"topic,omitempty"`
	EaseFactor     float64        `gorm:"column:ease_factor;not null;default:2.5" json:"ease_factor"`
	IntervalDays   int            `gorm:"column:interval_days;not null;default:0" json:"interval_days"`
	Repetitions    int            `gorm:"column:repetitions;not null;default:0" json:"repetitions"`
	NextReviewAt   time.Time      `gorm:"column:next_review_at;not null;index" json:"next_review_at"`
	LastReviewedAt *time.Time     `gorm:"column:last_reviewed_at" json:"last_reviewed_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (VocabCard) TableName() string { return "vocab_card" }

func (v *VocabCard) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
