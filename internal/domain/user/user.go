package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"

	ModuleAcademic = "academic"
	ModuleGeneral  = "general"
)

type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password        string         `gorm:"not null;column:password" json:"-"`
	FirstName       string         `gorm:"not null;column:first_name" json:"first_name"`
	LastName        string         `gorm:"not null;column:last_name" json:"last_name"`
	Role            string         `gorm:"not null;default:'student';column:role" json:"role"`
	TargetBand      float64        `gorm:"not null;default:7;column:target_band" json:"target_band"`
	ExamModule      string         `gorm:"not null;default:'academic';column:exam_module" json:"exam_module"`
	ExamDate        *time.Time     `gorm:"column:exam_date" json:"exam_date,omitempty"`
	EmailOptIn      bool           `gorm:"not null;column:email_opt_in" json:"email_opt_in"`
	AvatarColor     string         `gorm:"column:avatar_color" json:"avatar_color"`
	AvatarBucketKey string         `gorm:"column:avatar_bucket_key" json:"-"`
	AvatarURL       string         `gorm:"column:avatar_url" json:"avatar_url"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
