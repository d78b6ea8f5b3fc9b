package tutor

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type TutorThread struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	Skill         string         `gorm:"column:skill" json:"skill,omitempty"`
	NextSeq       int64          `gorm:"column:next_seq;not null;default:1" json:"-"`
	LastMessageAt *time.Time     `gorm:"column:last_message_at;index" json:"last_message_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TutorThread) TableName() string { return "tutor_thread" }

func (t *TutorThread) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type TutorMessage struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_tutor_message_thread_seq,priority:1" json:"thread_id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Seq       int64          `gorm:"column:seq;not null;uniqueIndex:idx_tutor_message_thread_seq,priority:2" json:"seq"`
	Role      string         `gorm:"column:role;not null" json:"role"`
	Content   string         `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TutorMessage) TableName() string { return "tutor_message" }

func (m *TutorMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
