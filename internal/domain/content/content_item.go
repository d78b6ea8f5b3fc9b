package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	KindPassage     = "passage"
	KindQuestionSet = "question_set"
	KindPrompt      = "prompt"
	KindAudio       = "audio"
	KindVocabulary  = "vocabulary"

	SourceManual    = "manual"
	SourceImport    = "import"
	SourceGenerated = "generated"
)

var Kinds = []string{KindPassage, KindQuestionSet, KindPrompt, KindAudio, KindVocabulary}

// ContentItem is practice material. AnswerKey maps question ids to accepted
// answers and is never returned to students.
type ContentItem struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Skill      string         `gorm:"column:skill;not null;index" json:"skill"`
	Kind       string         `gorm:"column:kind;not null;index" json:"kind"`
	Module     string         `gorm:"column:module;not null;default:'academic'" json:"module"`
	Title      string         `gorm:"column:title;not null" json:"title"`
	Difficulty float64        `gorm:"column:difficulty;not null;default:6;index" json:"difficulty"`
	Body       datatypes.JSON `gorm:"column:body" json:"body"`
	AnswerKey  datatypes.JSON `gorm:"column:answer_key" json:"-"`
	AudioURL   string         `gorm:"column:audio_url" json:"audio_url,omitempty"`
	Tags       string         `gorm:"column:tags" json:"tags,omitempty"`
	Source     string         `gorm:"column:source;not null;default:'manual'" json:"source"`
	Published  bool           `gorm:"column:published;not null;default:false;index" json:"published"`
	CreatedBy  *uuid.UUID     `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentItem) TableName() string { return "content_item" }

func (c *ContentItem) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
