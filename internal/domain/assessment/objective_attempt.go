package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ObjectiveAttempt holds the columns shared by reading and listening attempts.
// Each skill keeps its own table.
type ObjectiveAttempt struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	ContentItemID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"content_item_id"`
	Module         string         `gorm:"column:module;not null" json:"module"`
	Answers        datatypes.JSON `gorm:"column:answers" json:"answers"`
	PerQuestion    datatypes.JSON `gorm:"column:per_question" json:"per_question"`
	CorrectCount   int            `gorm:"column:correct_count;not null" json:"correct_count"`
	TotalQuestions int            `gorm:"column:total_questions;not null" json:"total_questions"`
	RawScore40     int            `gorm:"column:raw_score_40;not null" json:"raw_score_40"`
	Band           float64        `gorm:"column:band;not null" json:"band"`
	TimeSpentSec   int            `gorm:"column:time_spent_sec;not null;default:0" json:"time_spent_sec"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (a *ObjectiveAttempt) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type ReadingTest struct {
	ObjectiveAttempt
}

func (ReadingTest) TableName() string { return "reading_test" }

type ListeningTest struct {
	ObjectiveAttempt
}

func (ListeningTest) TableName() string { return "listening_test" }
