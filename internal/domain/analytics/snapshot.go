package analytics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnalyticsSnapshot is a per-user, per-day, per-skill rollup written by the
// nightly aggregation job.
type AnalyticsSnapshot struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_analytics_snapshot_key,priority:1" json:"user_id"`
	Day              string    `gorm:"column:day;not null;uniqueIndex:idx_analytics_snapshot_key,priority:2" json:"day"`
	Skill            string    `gorm:"column:skill;not null;uniqueIndex:idx_analytics_snapshot_key,priority:3" json:"skill"`
	Attempts         int       `gorm:"column:attempts;not null" json:"attempts"`
	AvgBand          float64   `gorm:"column:avg_band;not null" json:"avg_band"`
	MinutesPracticed float64   `gorm:"column:minutes_practiced;not null" json:"minutes_practiced"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (AnalyticsSnapshot) TableName() string { return "analytics_snapshot" }

func (s *AnalyticsSnapshot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
