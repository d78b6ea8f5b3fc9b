package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	WritingTask1 = "task1"
	WritingTask2 = "task2"

	WritingStatusSubmitted  = "submitted"
	WritingStatusProcessing = "processing"
	WritingStatusScored     = "scored"
	WritingStatusFailed     = "failed"
)

type WritingSubmission struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	TaskType        string         `gorm:"column:task_type;not null" json:"task_type"`
	Module          string         `gorm:"column:module;not null" json:"module"`
	Prompt          string         `gorm:"column:prompt;type:text" json:"prompt"`
	ContentItemID   *uuid.UUID     `gorm:"type:uuid;column:content_item_id;index" json:"content_item_id,omitempty"`
	Text            string         `gorm:"column:text;type:text" json:"text"`
	SourceBucketKey string         `gorm:"column:source_bucket_key" json:"-"`
	SourceMime      string         `gorm:"column:source_mime" json:"source_mime,omitempty"`
	OCRProvider     string         `gorm:"column:ocr_provider" json:"ocr_provider,omitempty"`
	WordCount       int            `gorm:"column:word_count;not null;default:0" json:"word_count"`
	TimeSpentSec    int            `gorm:"column:time_spent_sec;not null;default:0" json:"time_spent_sec"`
	Status          string         `gorm:"column:status;not null;index" json:"status"`
	CriteriaBands   datatypes.JSON `gorm:"column:criteria_bands" json:"criteria_bands,omitempty"`
	Band            *float64       `gorm:"column:band" json:"band,omitempty"`
	Feedback        string         `gorm:"column:feedback;type:text" json:"feedback,omitempty"`
	Corrections     datatypes.JSON `gorm:"column:corrections" json:"corrections,omitempty"`
	JobID           *uuid.UUID     `gorm:"type:uuid;column:job_id" json:"job_id,omitempty"`
	ScoredAt        *time.Time     `gorm:"column:scored_at" json:"scored_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (WritingSubmission) TableName() string { return "writing_submission" }

func (w *WritingSubmission) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
