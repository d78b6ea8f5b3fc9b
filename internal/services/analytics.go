package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/ielts-backend/internal/data/aggregates"
	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

const (
	DefaultDashboardDays = 30
	maxDashboardDays     = 365
	streakLookbackDays   = 365
	dayLayout            = "2006-01-02"
)

// AttemptFeed is the cross-table read side used for reporting.
type AttemptFeed interface {
	SkillTotals(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]aggregates.SkillTotal, error)
	History(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]aggregates.Point, error)
	ActiveUserIDs(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
	PlatformTotals(ctx context.Context, from, to time.Time) ([]aggregates.SkillTotal, error)
	CountUsers(ctx context.Context) (int64, error)
}

type Dashboard struct {
	Days             int                           `json:"days"`
	Progress         *ProgressSummary              `json:"progress"`
	History          map[string][]aggregates.Point `json:"history"`
	PracticeCounts   map[string]int                `json:"practice_counts"`
	TotalAttempts    int                           `json:"total_attempts"`
	MinutesPracticed float64                       `json:"minutes_practiced"`
	StreakDays       int                           `json:"streak_days"`
}

// PlatformOverview is the admin view of practice across all users.
type PlatformOverview struct {
	Days             int                     `json:"days"`
	Users            int64                   `json:"users"`
	TotalAttempts    int                     `json:"total_attempts"`
	MinutesPracticed float64                 `json:"minutes_practiced"`
	Skills           []aggregates.SkillTotal `json:"skills"`
}

type AggregateResult struct {
	Day   string `json:"day"`
	Users int    `json:"users"`
	Rows  int    `json:"rows"`
}

type AnalyticsService interface {
	Dashboard(ctx context.Context, days int) (*Dashboard, error)
	DashboardFor(ctx context.Context, userID uuid.UUID, days int) (*Dashboard, error)
	// Export renders the caller's dashboard as an xlsx workbook.
	Export(ctx context.Context, days int) ([]byte, string, error)
	ExportFor(ctx context.Context, userID uuid.UUID, days int) ([]byte, string, error)
	// Platform rolls up every user's attempts. Admin only.
	Platform(ctx context.Context, days int) (*PlatformOverview, error)
	// Aggregate writes per-skill snapshots for every user active on day (UTC).
	Aggregate(ctx context.Context, day time.Time) (*AggregateResult, error)
}

type analyticsService struct {
	log       *logger.Logger
	feed      AttemptFeed
	snapshots repos.SnapshotRepo
	progress  ProgressService
	nowFunc   func() time.Time
}

func NewAnalyticsService(baseLog *logger.Logger, feed AttemptFeed, snapshots repos.SnapshotRepo, progress ProgressService) AnalyticsService {
	return &analyticsService{
		log:       baseLog.With("service", "AnalyticsService"),
		feed:      feed,
		snapshots: snapshots,
		progress:  progress,
		nowFunc:   func() time.Time { return time.Now().UTC() },
	}
}

func normalizeDays(days int) (int, error) {
	if days <= 0 {
		return DefaultDashboardDays, nil
	}
	if days > maxDashboardDays {
		return 0, apierr.BadRequest("invalid_days", fmt.Sprintf("days must be at most %d", maxDashboardDays))
	}
	return days, nil
}

func (s *analyticsService) Dashboard(ctx context.Context, days int) (*Dashboard, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.DashboardFor(ctx, uid, days)
}

func (s *analyticsService) DashboardFor(ctx context.Context, userID uuid.UUID, days int) (*Dashboard, error) {
	days, err := normalizeDays(days)
	if err != nil {
		return nil, err
	}
	now := s.nowFunc()
	to := now.Add(time.Second)
	from := startOfDay(now).AddDate(0, 0, -(days - 1))
	lookback := startOfDay(now).AddDate(0, 0, -(streakLookbackDays - 1))
	if from.Before(lookback) {
		lookback = from
	}

	var (
		summary *ProgressSummary
		totals  []aggregates.SkillTotal
		points  []aggregates.Point
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.progress.SummaryFor(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.feed.SkillTotals(gctx, userID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		points, err = s.feed.History(gctx, userID, lookback, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		Days:           days,
		Progress:       summary,
		History:        make(map[string][]aggregates.Point, len(types.Skills)),
		PracticeCounts: make(map[string]int, len(types.Skills)),
	}
	for _, skill := range types.Skills {
		d.History[skill] = []aggregates.Point{}
		d.PracticeCounts[skill] = 0
	}
	for _, t := range totals {
		d.PracticeCounts[t.Skill] = t.Attempts
		d.TotalAttempts += t.Attempts
		d.MinutesPracticed += t.Minutes
	}
	d.MinutesPracticed = math.Round(d.MinutesPracticed*10) / 10

	active := make([]time.Time, 0, len(points))
	for _, p := range points {
		active = append(active, p.At.Time)
		if p.At.Before(from) {
			continue
		}
		d.History[p.Skill] = append(d.History[p.Skill], p)
	}
	d.StreakDays = CurrentStreak(active, now)
	return d, nil
}

func (s *analyticsService) Platform(ctx context.Context, days int) (*PlatformOverview, error) {
	if _, err := requestUserID(ctx); err != nil {
		return nil, err
	}
	if !isAdmin(ctx) {
		return nil, apierr.Forbidden("admin only")
	}
	days, err := normalizeDays(days)
	if err != nil {
		return nil, err
	}
	now := s.nowFunc()
	to := now.Add(time.Second)
	from := startOfDay(now).AddDate(0, 0, -(days - 1))

	out := &PlatformOverview{Days: days}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Users, err = s.feed.CountUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Skills, err = s.feed.PlatformTotals(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	byName := make(map[string]aggregates.SkillTotal, len(out.Skills))
	for _, t := range out.Skills {
		byName[t.Skill] = t
		out.TotalAttempts += t.Attempts
		out.MinutesPracticed += t.Minutes
	}
	skills := make([]aggregates.SkillTotal, 0, len(types.Skills))
	for _, skill := range types.Skills {
		t, ok := byName[skill]
		if !ok {
			t = aggregates.SkillTotal{Skill: skill}
		}
		skills = append(skills, t)
	}
	out.Skills = skills
	out.MinutesPracticed = math.Round(out.MinutesPracticed*10) / 10
	return out, nil
}

// CurrentStreak counts consecutive UTC days with at least one attempt ending
// today. A streak ending yesterday is still current until today is over.
func CurrentStreak(attempts []time.Time, now time.Time) int {
	days := make(map[string]bool, len(attempts))
	for _, at := range attempts {
		if at.IsZero() {
			continue
		}
		days[at.UTC().Format(dayLayout)] = true
	}
	cursor := startOfDay(now)
	if !days[cursor.Format(dayLayout)] {
		cursor = cursor.AddDate(0, 0, -1)
	}
	streak := 0
	for days[cursor.Format(dayLayout)] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *analyticsService) Aggregate(ctx context.Context, day time.Time) (*AggregateResult, error) {
	from := startOfDay(day)
	to := from.AddDate(0, 0, 1)
	res := &AggregateResult{Day: from.Format(dayLayout)}

	users, err := s.feed.ActiveUserIDs(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, uid := range users {
		totals, err := s.feed.SkillTotals(ctx, uid, from, to)
		if err != nil {
			return nil, err
		}
		rows := make([]*types.AnalyticsSnapshot, 0, len(totals))
		for _, t := range totals {
			rows = append(rows, &types.AnalyticsSnapshot{
				UserID:           uid,
				Day:              res.Day,
				Skill:            t.Skill,
				Attempts:         t.Attempts,
				AvgBand:          math.Round(t.AvgBand*100) / 100,
				MinutesPracticed: math.Round(t.Minutes*10) / 10,
			})
		}
		if err := s.snapshots.Upsert(dbctx.Context{Ctx: ctx}, rows); err != nil {
			return nil, fmt.Errorf("upsert snapshots for %s: %w", uid, err)
		}
		res.Users++
		res.Rows += len(rows)
	}
	s.log.Info("Analytics aggregated", "day", res.Day, "users", res.Users, "rows", res.Rows)
	return res, nil
}

func (s *analyticsService) Export(ctx context.Context, days int) ([]byte, string, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, "", err
	}
	return s.ExportFor(ctx, uid, days)
}

func (s *analyticsService) ExportFor(ctx context.Context, userID uuid.UUID, days int) ([]byte, string, error) {
	d, err := s.DashboardFor(ctx, userID, days)
	if err != nil {
		return nil, "", err
	}
	raw, err := RenderWorkbook(d)
	if err != nil {
		return nil, "", fmt.Errorf("render export: %w", err)
	}
	name := fmt.Sprintf("ielts-progress-%s.xlsx", s.nowFunc().Format(dayLayout))
	return raw, name, nil
}

// RenderWorkbook writes a summary sheet and a history sheet.
func RenderWorkbook(d *Dashboard) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summary, history = "summary", "history"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(history); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	rows := [][]interface{}{
		{"Skill", "Current band", "Best band", "Average band", "Attempts (all time)", "Attempts (window)", "Gap to target"},
	}
	if d.Progress != nil {
		for _, p := range d.Progress.Skills {
			rows = append(rows, []interface{}{
				p.Skill, p.CurrentBand, p.BestBand, p.AvgBand, p.Attempts,
				d.PracticeCounts[p.Skill], d.Progress.SkillGaps[p.Skill],
			})
		}
		rows = append(rows, []interface{}{})
		rows = append(rows, []interface{}{"Target band", d.Progress.TargetBand})
		if d.Progress.Overall != nil {
			rows = append(rows, []interface{}{"Overall band", *d.Progress.Overall})
		}
	}
	rows = append(rows,
		[]interface{}{"Window (days)", d.Days},
		[]interface{}{"Minutes practiced", d.MinutesPracticed},
		[]interface{}{"Current streak (days)", d.StreakDays},
	)
	for i, row := range rows {
		if err := f.SetSheetRow(summary, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(summary, "A1", "G1", bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(summary, "A", "G", 20); err != nil {
		return nil, err
	}

	var points []aggregates.Point
	for _, skill := range types.Skills {
		points = append(points, d.History[skill]...)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].At.Before(points[j].At.Time) })
	header := []interface{}{"Date", "Skill", "Band", "Minutes"}
	if err := f.SetSheetRow(history, "A1", &header); err != nil {
		return nil, err
	}
	for i, p := range points {
		row := []interface{}{p.At.Format("2006-01-02 15:04"), p.Skill, p.Band, math.Round(p.Minutes*10) / 10}
		if err := f.SetSheetRow(history, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(history, "A1", "D1", bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(history, "A", "A", 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
