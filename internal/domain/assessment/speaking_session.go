package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SpeakingStatusCreated    = "created"
	SpeakingStatusUploaded   = "uploaded"
	SpeakingStatusProcessing = "processing"
	SpeakingStatusScored     = "scored"
	SpeakingStatusFailed     = "failed"
)

type SpeakingSession struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Part           int            `gorm:"column:part;not null" json:"part"`
	Prompt         string         `gorm:"column:prompt;type:text" json:"prompt"`
	ContentItemID  *uuid.UUID     `gorm:"type:uuid;column:content_item_id;index" json:"content_item_id,omitempty"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	AudioBucketKey string         `gorm:"column:audio_bucket_key" json:"-"`
	AudioMime      string         `gorm:"column:audio_mime" json:"audio_mime,omitempty"`
	DurationSec    float64        `gorm:"column:duration_sec" json:"duration_sec"`
	Transcript     string         `gorm:"column:transcript;type:text" json:"transcript,omitempty"`
	Metrics        datatypes.JSON `gorm:"column:metrics" json:"metrics,omitempty"`
	CriteriaBands  datatypes.JSON `gorm:"column:criteria_bands" json:"criteria_bands,omitempty"`
	Band           *float64       `gorm:"column:band" json:"band,omitempty"`
	Feedback       string         `gorm:"column:feedback;type:text" json:"feedback,omitempty"`
	JobID          *uuid.UUID     `gorm:"type:uuid;column:job_id" json:"job_id,omitempty"`
	ScoredAt       *time.Time     `gorm:"column:scored_at" json:"scored_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SpeakingSession) TableName() string { return "speaking_session" }

func (s *SpeakingSession) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
