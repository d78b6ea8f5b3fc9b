package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
)

func TestSkillTotalsAcrossAttemptTables(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	store, err := New(db, testutil.Logger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	u := testutil.SeedUser(t, ctx, db, "agg@example.com")
	other := testutil.SeedUser(t, ctx, db, "agg-other@example.com")
	t.Cleanup(func() {
		db.Unscoped().Where("user_id IN ?", []interface{}{u.ID, other.ID}).Delete(&types.ReadingTest{})
		db.Unscoped().Where("user_id IN ?", []interface{}{u.ID, other.ID}).Delete(&types.WritingSubmission{})
		db.Unscoped().Where("id IN ?", []interface{}{u.ID, other.ID}).Delete(&types.User{})
	})

	day := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	scored := day.Add(10 * time.Hour)
	band := 6.5
	ci := testutil.SeedContentItem(t, ctx, db, "reading", "passage", 6, `{"1":"a"}`)

	for _, b := range []float64{6, 7} {
		rt := &types.ReadingTest{}
		rt.UserID = u.ID
		rt.ContentItemID = ci.ID
		rt.Module = "academic"
		rt.Band = b
		rt.TimeSpentSec = 1200
		rt.CreatedAt = scored
		if err := db.Create(rt).Error; err != nil {
			t.Fatalf("seed reading: %v", err)
		}
	}
	ws := &types.WritingSubmission{
		UserID: u.ID, TaskType: "task2", Module: "academic", Prompt: "p", Text: "t",
		Status: "scored", Band: &band, ScoredAt: &scored, TimeSpentSec: 2400,
	}
	if err := db.Create(ws).Error; err != nil {
		t.Fatalf("seed writing: %v", err)
	}
	unscored := &types.WritingSubmission{
		UserID: other.ID, TaskType: "task2", Module: "academic", Prompt: "p", Text: "t", Status: "submitted",
	}
	if err := db.Create(unscored).Error; err != nil {
		t.Fatalf("seed unscored: %v", err)
	}

	totals, err := store.SkillTotals(ctx, u.ID, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("SkillTotals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("SkillTotals: got %+v", totals)
	}
	if totals[0].Skill != "reading" || totals[0].Attempts != 2 || totals[0].AvgBand != 6.5 || totals[0].Minutes != 40 {
		t.Fatalf("reading totals: got %+v", totals[0])
	}
	if totals[1].Skill != "writing" || totals[1].Attempts != 1 || totals[1].Minutes != 40 {
		t.Fatalf("writing totals: got %+v", totals[1])
	}

	ids, err := store.ActiveUserIDs(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ActiveUserIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != u.ID {
		t.Fatalf("ActiveUserIDs: got %v want [%s]", ids, u.ID)
	}

	hist, err := store.History(ctx, u.ID, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("History: got %d points want 3", len(hist))
	}
	for _, p := range hist {
		if !p.At.Equal(scored) {
			t.Fatalf("History: point %+v at %v want %v", p, p.At.Time, scored)
		}
	}

	platform, err := store.PlatformTotals(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("PlatformTotals: %v", err)
	}
	if len(platform) != 2 || platform[0].Attempts != 2 || platform[1].Attempts != 1 {
		t.Fatalf("PlatformTotals: got %+v", platform)
	}

	users, err := store.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if users < 2 {
		t.Fatalf("CountUsers: got %d want at least 2", users)
	}

	none, err := store.SkillTotals(ctx, u.ID, day.Add(48*time.Hour), day.Add(72*time.Hour))
	if err != nil || len(none) != 0 {
		t.Fatalf("SkillTotals outside window: got %+v err %v", none, err)
	}
}
