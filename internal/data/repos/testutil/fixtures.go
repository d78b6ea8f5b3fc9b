package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:         uuid.New(),
		Email:      email,
		Password:   "pw",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Role:       "student",
		TargetBand: 7,
		ExamModule: "academic",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedContentItem(tb testing.TB, ctx context.Context, tx *gorm.DB, skill, kind string, difficulty float64, answerKey string) *types.ContentItem {
	tb.Helper()
	ci := &types.ContentItem{
		ID:         uuid.New(),
		Skill:      skill,
		Kind:       kind,
		Module:     "academic",
		Title:      skill + " " + kind,
		Difficulty: difficulty,
		Body:       datatypes.JSON([]byte(`{"text":"sample"}`)),
		Source:     "manual",
		Published:  true,
	}
	if answerKey != "" {
		ci.AnswerKey = datatypes.JSON([]byte(answerKey))
	}
	if err := tx.WithContext(ctx).Create(ci).Error; err != nil {
		tb.Fatalf("seed content item: %v", err)
	}
	return ci
}

func PtrTime(v time.Time) *time.Time { return &v }
