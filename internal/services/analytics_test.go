package services

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yungbote/ielts-backend/internal/data/aggregates"
	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
)

type fakeFeed struct {
	totals   []aggregates.SkillTotal
	points   []aggregates.Point
	users    []uuid.UUID
	platform []aggregates.SkillTotal
	count    int64
}

func (f *fakeFeed) SkillTotals(context.Context, uuid.UUID, time.Time, time.Time) ([]aggregates.SkillTotal, error) {
	return f.totals, nil
}

func (f *fakeFeed) History(context.Context, uuid.UUID, time.Time, time.Time) ([]aggregates.Point, error) {
	return f.points, nil
}

func (f *fakeFeed) ActiveUserIDs(context.Context, time.Time, time.Time) ([]uuid.UUID, error) {
	return f.users, nil
}

func (f *fakeFeed) PlatformTotals(context.Context, time.Time, time.Time) ([]aggregates.SkillTotal, error) {
	return f.platform, nil
}

func (f *fakeFeed) CountUsers(context.Context) (int64, error) {
	return f.count, nil
}

type fakeProgress struct {
	ProgressService
	summary *ProgressSummary
}

func (f *fakeProgress) SummaryFor(context.Context, uuid.UUID) (*ProgressSummary, error) {
	return f.summary, nil
}

func point(skill string, band float64, at time.Time) aggregates.Point {
	p := aggregates.Point{Skill: skill, Band: band, Minutes: 20}
	p.At.Time = at
	return p
}

func TestCurrentStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	day := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC) }
	tests := []struct {
		name     string
		attempts []time.Time
		want     int
	}{
		{"none", nil, 0},
		{"through today", []time.Time{day(10, 8), day(9, 23), day(8, 1)}, 3},
		{"ends yesterday", []time.Time{day(9, 8), day(8, 8)}, 2},
		{"same day twice", []time.Time{day(10, 8), day(10, 9)}, 1},
		{"broken", []time.Time{day(10, 8), day(8, 8)}, 1},
		{"too old", []time.Time{day(8, 8)}, 0},
	}
	for _, tt := range tests {
		if got := CurrentStreak(tt.attempts, now); got != tt.want {
			t.Fatalf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestDashboardForFillsEverySkill(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	feed := &fakeFeed{
		totals: []aggregates.SkillTotal{{Skill: types.SkillReading, Attempts: 3, AvgBand: 6.5, Minutes: 45.04}},
		points: []aggregates.Point{
			point(types.SkillReading, 6, now.Add(-time.Hour)),
			point(types.SkillReading, 7, now.AddDate(0, 0, -1)),
			point(types.SkillReading, 5, now.AddDate(0, 0, -60)),
		},
	}
	summary := &ProgressSummary{TargetBand: 7, SkillGaps: map[string]float64{}}
	svc := NewAnalyticsService(testutil.Logger(t), feed, nil, &fakeProgress{summary: summary}).(*analyticsService)
	svc.nowFunc = func() time.Time { return now }

	if _, err := svc.DashboardFor(context.Background(), uuid.New(), maxDashboardDays+1); err == nil {
		t.Fatalf("DashboardFor too many days: expected error")
	}
	d, err := svc.DashboardFor(context.Background(), uuid.New(), 0)
	if err != nil {
		t.Fatalf("DashboardFor: %v", err)
	}
	if d.Days != DefaultDashboardDays || d.TotalAttempts != 3 || d.MinutesPracticed != 45 {
		t.Fatalf("DashboardFor: got days=%d attempts=%d minutes=%v", d.Days, d.TotalAttempts, d.MinutesPracticed)
	}
	for _, skill := range types.Skills {
		if _, ok := d.History[skill]; !ok {
			t.Fatalf("History missing %s", skill)
		}
	}
	if len(d.History[types.SkillReading]) != 2 {
		t.Fatalf("History reading: got %d points, want 2 inside the window", len(d.History[types.SkillReading]))
	}
	if d.StreakDays != 2 {
		t.Fatalf("StreakDays: got %d, want 2", d.StreakDays)
	}
}

func TestRenderWorkbook(t *testing.T) {
	overall := 6.5
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d := &Dashboard{
		Days: 7,
		Progress: &ProgressSummary{
			TargetBand: 7,
			Overall:    &overall,
			Skills: []*types.UserProgress{
				{Skill: types.SkillReading, CurrentBand: 6.5, BestBand: 7, AvgBand: 6.25, Attempts: 4},
			},
			SkillGaps: map[string]float64{types.SkillReading: 0.5},
		},
		History: map[string][]aggregates.Point{
			types.SkillReading: {point(types.SkillReading, 7, now), point(types.SkillReading, 6, now.Add(-48*time.Hour))},
		},
		PracticeCounts: map[string]int{types.SkillReading: 2},
	}
	raw, err := RenderWorkbook(d)
	if err != nil {
		t.Fatalf("RenderWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	summary, err := f.GetRows("summary")
	if err != nil {
		t.Fatalf("summary sheet: %v", err)
	}
	if summary[0][0] != "Skill" || summary[1][0] != types.SkillReading {
		t.Fatalf("summary rows: got %v", summary[:2])
	}
	history, err := f.GetRows("history")
	if err != nil {
		t.Fatalf("history sheet: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history rows: got %d, want 3", len(history))
	}
	if history[1][0] != "2026-03-08 12:00" {
		t.Fatalf("history not sorted oldest first: got %v", history[1])
	}
}

func TestAnalyticsAggregateWritesSnapshots(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	uid := uuid.New()
	feed := &fakeFeed{
		users:  []uuid.UUID{uid},
		totals: []aggregates.SkillTotal{{Skill: types.SkillWriting, Attempts: 2, AvgBand: 6.333, Minutes: 80}},
	}
	snapshots := repos.NewSnapshotRepo(db, log)
	svc := NewAnalyticsService(log, feed, snapshots, &fakeProgress{})

	day := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	res, err := svc.Aggregate(context.Background(), day)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.Day != "2026-03-09" || res.Users != 1 || res.Rows != 1 {
		t.Fatalf("Aggregate: got %+v", res)
	}
	rows, err := snapshots.ListByUser(dbctx.Context{Ctx: context.Background()}, uid, "2026-03-09", "2026-03-09")
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByUser: got %d err %v", len(rows), err)
	}
	if rows[0].AvgBand != 6.33 {
		t.Fatalf("AvgBand: got %v, want 6.33", rows[0].AvgBand)
	}
}

func TestAnalyticsPlatformAdminOnly(t *testing.T) {
	feed := &fakeFeed{
		count: 12,
		platform: []aggregates.SkillTotal{
			{Skill: types.SkillReading, Attempts: 4, AvgBand: 6.5, Minutes: 80.04},
			{Skill: types.SkillWriting, Attempts: 1, AvgBand: 7, Minutes: 40},
		},
	}
	svc := NewAnalyticsService(testutil.Logger(t), feed, nil, &fakeProgress{})

	_, err := svc.Platform(userCtx(uuid.New()), 7)
	if e, ok := apierr.As(err); !ok || e.Status != http.StatusForbidden {
		t.Fatalf("student: got %v want 403", err)
	}
	if _, err := svc.Platform(adminCtx(uuid.New()), maxDashboardDays+1); err == nil {
		t.Fatalf("too many days: expected error")
	}

	o, err := svc.Platform(adminCtx(uuid.New()), 7)
	if err != nil {
		t.Fatalf("Platform: %v", err)
	}
	if o.Days != 7 || o.Users != 12 || o.TotalAttempts != 5 || o.MinutesPracticed != 120 {
		t.Fatalf("Platform: got %+v", o)
	}
	if len(o.Skills) != len(types.Skills) {
		t.Fatalf("Skills: got %d want %d", len(o.Skills), len(types.Skills))
	}
	for i, skill := range types.Skills {
		if o.Skills[i].Skill != skill {
			t.Fatalf("Skills[%d]: got %q want %q", i, o.Skills[i].Skill, skill)
		}
	}
}
