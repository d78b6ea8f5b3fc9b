package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/learning"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/scoring"
)

const (
	DefaultPathSteps = 12
	maxPathSteps     = 40
	minSkillWeight   = 0.5
)

type LearningPathService interface {
	Generate(ctx context.Context, steps int) (*types.LearningPath, error)
	GetActive(ctx context.Context) (*types.LearningPath, error)
	List(ctx context.Context, limit int) ([]*types.LearningPath, error)
	CompleteStep(ctx context.Context, stepID uuid.UUID) (*types.LearningPath, error)
	SkipStep(ctx context.Context, stepID uuid.UUID) (*types.LearningPath, error)
}

type learningPathService struct {
	db       *gorm.DB
	log      *logger.Logger
	paths    repos.LearningPathRepo
	progress repos.UserProgressRepo
	users    repos.UserRepo
	content  repos.ContentItemRepo
}

func NewLearningPathService(
	db *gorm.DB,
	baseLog *logger.Logger,
	paths repos.LearningPathRepo,
	progress repos.UserProgressRepo,
	users repos.UserRepo,
	content repos.ContentItemRepo,
) LearningPathService {
	return &learningPathService{
		db:       db,
		log:      baseLog.With("service", "LearningPathService"),
		paths:    paths,
		progress: progress,
		users:    users,
		content:  content,
	}
}

// SkillWeights is the gap to target per skill, floored at minSkillWeight so
// skills already at target still get maintenance steps.
func SkillWeights(target float64, current map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(types.Skills))
	for _, skill := range types.Skills {
		out[skill] = math.Max(minSkillWeight, target-current[skill])
	}
	return out
}

// AllocateSteps splits n steps across skills in proportion to weights using
// the largest remainder method. Ties go to the skill listed first in types.Skills.
func AllocateSteps(weights map[string]float64, n int) map[string]int {
	out := make(map[string]int, len(types.Skills))
	total := 0.0
	for _, skill := range types.Skills {
		total += weights[skill]
	}
	if n <= 0 || total <= 0 {
		return out
	}
	type rem struct {
		skill string
		frac  float64
		idx   int
	}
	var rems []rem
	assigned := 0
	for i, skill := range types.Skills {
		exact := float64(n) * weights[skill] / total
		whole := int(math.Floor(exact))
		out[skill] = whole
		assigned += whole
		rems = append(rems, rem{skill: skill, frac: exact - float64(whole), idx: i})
	}
	sort.SliceStable(rems, func(i, j int) bool {
		if math.Abs(rems[i].frac-rems[j].frac) > 1e-9 {
			return rems[i].frac > rems[j].frac
		}
		return rems[i].idx < rems[j].idx
	})
	for i := 0; assigned < n; i++ {
		out[rems[i%len(rems)].skill]++
		assigned++
	}
	return out
}

// InterleaveSkills orders steps round robin, heaviest skill first, so no
// skill is practiced in one long block.
func InterleaveSkills(alloc map[string]int, weights map[string]float64) []string {
	order := append([]string(nil), types.Skills...)
	sort.SliceStable(order, func(i, j int) bool { return weights[order[i]] > weights[order[j]] })
	left := make(map[string]int, len(alloc))
	total := 0
	for k, v := range alloc {
		left[k] = v
		total += v
	}
	out := make([]string, 0, total)
	for len(out) < total {
		for _, skill := range order {
			if left[skill] > 0 {
				out = append(out, skill)
				left[skill]--
			}
		}
	}
	return out
}

func (s *learningPathService) Generate(ctx context.Context, steps int) (*types.LearningPath, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	if steps <= 0 {
		steps = DefaultPathSteps
	}
	if steps > maxPathSteps {
		return nil, apierr.BadRequest("too_many_steps", fmt.Sprintf("steps must be at most %d", maxPathSteps))
	}
	u, err := loadUser(ctx, s.users, uid)
	if err != nil {
		return nil, err
	}
	rows, err := s.progress.ListByUser(dbctx.Context{Ctx: ctx}, uid)
	if err != nil {
		return nil, err
	}
	current := map[string]float64{}
	practiced := map[string]float64{}
	for _, r := range rows {
		current[r.Skill] = r.CurrentBand
		if r.Attempts > 0 {
			practiced[r.Skill] = r.CurrentBand
		}
	}
	weights := SkillWeights(u.TargetBand, current)
	order := InterleaveSkills(AllocateSteps(weights, steps), weights)

	startBand := 0.0
	if overall, err := scoring.OverallFromMap(practiced); err == nil {
		startBand = overall
	}
	path := &types.LearningPath{
		UserID:     uid,
		Title:      fmt.Sprintf("Road to band %.1f", u.TargetBand),
		TargetBand: u.TargetBand,
		StartBand:  startBand,
		Status:     learning.PathActive,
	}

	used := map[string][]uuid.UUID{}
	for i, skill := range order {
		step := &types.LearningPathStep{
			Position: i + 1,
			Skill:    skill,
			Status:   learning.StepPending,
		}
		difficulty := scoring.ClampBand(current[skill] + 0.5)
		if _, ok := practiced[skill]; !ok {
			difficulty = math.Max(u.TargetBand-1.5, 4)
		}
		items, err := s.content.Nearest(dbctx.Context{Ctx: ctx}, skill, contentModule(skill, u.ExamModule), difficulty, used[skill], 1)
		if err != nil {
			return nil, fmt.Errorf("pick %s content: %w", skill, err)
		}
		if len(items) > 0 {
			id := items[0].ID
			step.ContentItemID = &id
			step.Title = items[0].Title
			used[skill] = append(used[skill], id)
		} else {
			step.Title = fmt.Sprintf("%s practice at band %.1f", titleCase(skill), difficulty)
		}
		step.Description = stepDescription(skill, difficulty)
		path.Steps = append(path.Steps, step)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.paths.ArchiveActive(inner, uid); err != nil {
			return err
		}
		return s.paths.Create(inner, path)
	})
	if err != nil {
		return nil, fmt.Errorf("save learning path: %w", err)
	}
	s.log.Info("Learning path generated", "user_id", uid, "path_id", path.ID, "steps", len(path.Steps))
	return path, nil
}

func stepDescription(skill string, band float64) string {
	switch skill {
	case types.SkillListening:
		return fmt.Sprintf("Complete a listening section aimed at band %.1f. Read the questions before the audio starts.", band)
	case types.SkillReading:
		return fmt.Sprintf("Complete a reading passage aimed at band %.1f within 20 minutes.", band)
	case types.SkillWriting:
		return fmt.Sprintf("Write a timed response aimed at band %.1f and review the examiner feedback.", band)
	default:
		return fmt.Sprintf("Record a speaking answer aimed at band %.1f and compare it with the feedback.", band)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func (s *learningPathService) GetActive(ctx context.Context) (*types.LearningPath, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.paths.GetActive(dbctx.Context{Ctx: ctx}, uid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apierr.NotFound("no_active_path")
	}
	return p, nil
}

func (s *learningPathService) List(ctx context.Context, limit int) ([]*types.LearningPath, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	limit, _ = clampPage(limit, 0)
	return s.paths.ListByUser(dbctx.Context{Ctx: ctx}, uid, limit)
}

func (s *learningPathService) CompleteStep(ctx context.Context, stepID uuid.UUID) (*types.LearningPath, error) {
	return s.finishStep(ctx, stepID, learning.StepCompleted)
}

func (s *learningPathService) SkipStep(ctx context.Context, stepID uuid.UUID) (*types.LearningPath, error) {
	return s.finishStep(ctx, stepID, learning.StepSkipped)
}

// finishStep only touches steps of the active path. The path is marked
// completed once no pending step remains.
func (s *learningPathService) finishStep(ctx context.Context, stepID uuid.UUID, status string) (*types.LearningPath, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.paths.GetActive(dbctx.Context{Ctx: ctx}, uid)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, apierr.NotFound("no_active_path")
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		step, err := s.paths.GetStep(inner, active.ID, stepID)
		if err != nil {
			return err
		}
		if step == nil {
			return apierr.NotFound("step_not_found")
		}
		if step.Status != learning.StepPending {
			return apierr.Conflict("step_not_pending", fmt.Sprintf("step is already %s", step.Status))
		}
		updates := map[string]interface{}{"status": status}
		if status == learning.StepCompleted {
			updates["completed_at"] = time.Now().UTC()
		}
		if err := s.paths.UpdateStep(inner, step.ID, updates); err != nil {
			return err
		}
		pending, err := s.paths.CountPending(inner, active.ID)
		if err != nil {
			return err
		}
		if pending == 0 {
			return s.paths.UpdateStatus(inner, active.ID, learning.PathCompleted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.paths.GetForUser(dbctx.Context{Ctx: ctx}, uid, active.ID)
}
