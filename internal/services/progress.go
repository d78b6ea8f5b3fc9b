package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/assessment"
	"github.com/yungbote/ielts-backend/internal/observability"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/scoring"
)

// Attempt is one scored practice result fed into user_progress.
type Attempt struct {
	UserID        uuid.UUID
	Skill         string
	Band          float64
	CriteriaBands scoring.CriteriaBands
	At            time.Time
}

type ProgressSummary struct {
	TargetBand  float64               `json:"target_band"`
	Skills      []*types.UserProgress `json:"skills"`
	Overall     *float64              `json:"overall_band,omitempty"`
	GapToTarget *float64              `json:"gap_to_target,omitempty"`
	SkillGaps   map[string]float64    `json:"skill_gaps"`
}

type ProgressService interface {
	Record(dbc dbctx.Context, a Attempt) (*types.UserProgress, error)
	Summary(ctx context.Context) (*ProgressSummary, error)
	SummaryFor(ctx context.Context, userID uuid.UUID) (*ProgressSummary, error)
}

type progressService struct {
	db       *gorm.DB
	log      *logger.Logger
	progress repos.UserProgressRepo
	users    repos.UserRepo
}

func NewProgressService(db *gorm.DB, baseLog *logger.Logger, progress repos.UserProgressRepo, users repos.UserRepo) ProgressService {
	return &progressService{
		db:       db,
		log:      baseLog.With("service", "ProgressService"),
		progress: progress,
		users:    users,
	}
}

// Record upserts the (user, skill) row under a row lock. The row is inserted
// with ON CONFLICT DO NOTHING before the lock, so two first attempts for a
// skill both land on the same row instead of racing on the unique index.
func (s *progressService) Record(dbc dbctx.Context, a Attempt) (*types.UserProgress, error) {
	if !assessment.IsSkill(a.Skill) {
		return nil, fmt.Errorf("unknown skill %q", a.Skill)
	}
	band := scoring.RoundBand(a.Band)
	at := a.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	var out *types.UserProgress
	err := transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if err := s.progress.EnsureRow(inner, a.UserID, a.Skill); err != nil {
			return err
		}
		row, err := s.progress.GetForUpdate(inner, a.UserID, a.Skill)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("progress row for %s/%s missing after insert", a.UserID, a.Skill)
		}
		applyAttempt(row, band, a.CriteriaBands, at)
		out = row
		return s.progress.UpdateFields(inner, row.ID, map[string]interface{}{
			"current_band":      row.CurrentBand,
			"best_band":         row.BestBand,
			"avg_band":          row.AvgBand,
			"attempts":          row.Attempts,
			"weakest_criteria":  row.WeakestCriteria,
			"weakest_band":      row.WeakestBand,
			"last_practiced_at": row.LastPracticedAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("record progress: %w", err)
	}
	observability.Current().ObserveBand(a.Skill, band)
	return out, nil
}

func applyAttempt(row *types.UserProgress, band float64, criteria scoring.CriteriaBands, at time.Time) {
	n := float64(row.Attempts)
	row.AvgBand = math.Round((row.AvgBand*n+band)/(n+1)*100) / 100
	row.Attempts++
	row.CurrentBand = band
	if band > row.BestBand {
		row.BestBand = band
	}
	if name, v, ok := criteria.Weakest(); ok {
		row.WeakestCriteria = name
		row.WeakestBand = &v
	}
	row.LastPracticedAt = &at
}

func (s *progressService) Summary(ctx context.Context) (*ProgressSummary, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.SummaryFor(ctx, uid)
}

// SummaryFor lists all four skills; unpracticed ones come back as zero rows.
func (s *progressService) SummaryFor(ctx context.Context, userID uuid.UUID) (*ProgressSummary, error) {
	users, err := s.users.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apierr.NotFound("user_not_found")
	}
	rows, err := s.progress.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, err
	}
	bySkill := make(map[string]*types.UserProgress, len(rows))
	for _, r := range rows {
		bySkill[r.Skill] = r
	}
	out := &ProgressSummary{TargetBand: users[0].TargetBand, SkillGaps: map[string]float64{}}
	bands := map[string]float64{}
	for _, skill := range types.Skills {
		row, ok := bySkill[skill]
		if !ok {
			row = &types.UserProgress{UserID: userID, Skill: skill}
		} else if row.Attempts > 0 {
			bands[skill] = row.CurrentBand
		}
		out.Skills = append(out.Skills, row)
		out.SkillGaps[skill] = math.Max(0, out.TargetBand-row.CurrentBand)
	}
	if overall, err := scoring.OverallFromMap(bands); err == nil {
		gap := math.Max(0, out.TargetBand-overall)
		out.Overall = &overall
		out.GapToTarget = &gap
	}
	return out, nil
}
