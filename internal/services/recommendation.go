package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/learning"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/scoring"
)

const (
	maxOpenRecommendations = 5
	// A gap of this many bands saturates the gap term.
	gapSaturationBands = 3.0
	staleAfterDays     = 14.0
	startHerePriority  = 1.0
)

type RecommendationService interface {
	Refresh(ctx context.Context) ([]*types.Recommendation, error)
	RefreshFor(ctx context.Context, userID uuid.UUID) ([]*types.Recommendation, error)
	List(ctx context.Context) ([]*types.Recommendation, error)
	Dismiss(ctx context.Context, id uuid.UUID) error
	MarkDone(ctx context.Context, id uuid.UUID) error
}

type recommendationService struct {
	log      *logger.Logger
	recs     repos.RecommendationRepo
	progress repos.UserProgressRepo
	users    repos.UserRepo
	content  repos.ContentItemRepo
	nowFunc  func() time.Time
}

func NewRecommendationService(
	baseLog *logger.Logger,
	recs repos.RecommendationRepo,
	progress repos.UserProgressRepo,
	users repos.UserRepo,
	content repos.ContentItemRepo,
) RecommendationService {
	return &recommendationService{
		log:      baseLog.With("service", "RecommendationService"),
		recs:     recs,
		progress: progress,
		users:    users,
		content:  content,
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

// RecommendationPriority combines the gap to target, staleness and the
// weakest criterion into a score in [0, 1].
func RecommendationPriority(gap, daysSincePractice float64, weakestBand *float64) float64 {
	gapTerm := math.Min(math.Max(gap, 0)/gapSaturationBands, 1)
	staleTerm := math.Min(math.Max(daysSincePractice, 0)/staleAfterDays, 1)
	weakTerm := 0.0
	if weakestBand != nil {
		weakTerm = (scoring.MaxBand - scoring.ClampBand(*weakestBand)) / scoring.MaxBand
	}
	p := 0.6*gapTerm + 0.25*staleTerm + 0.15*weakTerm
	return math.Round(p*1000) / 1000
}

// contentModule returns the module filter for content lookups. Listening and
// speaking material is shared by both modules.
func contentModule(skill, examModule string) string {
	if skill == types.SkillReading || skill == types.SkillWriting {
		return examModule
	}
	return ""
}

func (s *recommendationService) Refresh(ctx context.Context) ([]*types.Recommendation, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.RefreshFor(ctx, uid)
}

func (s *recommendationService) RefreshFor(ctx context.Context, userID uuid.UUID) ([]*types.Recommendation, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.progress.ListByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	bySkill := map[string]*types.UserProgress{}
	for _, r := range rows {
		bySkill[r.Skill] = r
	}

	now := s.nowFunc()
	var cands []*types.Recommendation
	var used []uuid.UUID
	for _, skill := range types.Skills {
		row := bySkill[skill]
		if row == nil || row.Attempts == 0 {
			rec := &types.Recommendation{
				Skill:    skill,
				Kind:     learning.RecommendationPractice,
				Title:    fmt.Sprintf("Start here: your first %s practice", skill),
				Reason:   fmt.Sprintf("No %s attempts yet. One scored attempt sets your baseline.", skill),
				Priority: startHerePriority,
			}
			used = s.attachContent(dbc, rec, skill, contentModule(skill, u.ExamModule), math.Max(u.TargetBand-1.5, 4), used)
			cands = append(cands, rec)
			continue
		}
		gap := math.Max(0, u.TargetBand-row.CurrentBand)
		days := staleAfterDays
		if row.LastPracticedAt != nil {
			days = now.Sub(*row.LastPracticedAt).Hours() / 24
		}
		p := RecommendationPriority(gap, days, row.WeakestBand)

		practice := &types.Recommendation{
			Skill:    skill,
			Kind:     learning.RecommendationPractice,
			Title:    fmt.Sprintf("Practice %s at band %.1f", skill, scoring.ClampBand(row.CurrentBand+0.5)),
			Reason:   practiceReason(skill, gap, days),
			Priority: p,
		}
		used = s.attachContent(dbc, practice, skill, contentModule(skill, u.ExamModule), row.CurrentBand+0.5, used)
		cands = append(cands, practice)

		if row.WeakestCriteria != "" && row.WeakestBand != nil && *row.WeakestBand < row.CurrentBand {
			cands = append(cands, &types.Recommendation{
				Skill:    skill,
				Kind:     learning.RecommendationReview,
				Title:    fmt.Sprintf("Review %s", humanCriterion(row.WeakestCriteria)),
				Reason:   criterionReason(row.WeakestCriteria, *row.WeakestBand),
				Priority: math.Max(0, p-0.05),
			})
		}
		if days >= staleAfterDays {
			cands = append(cands, &types.Recommendation{
				Skill:    skill,
				Kind:     learning.RecommendationStrategy,
				Title:    fmt.Sprintf("Get back into %s", skill),
				Reason:   fmt.Sprintf("It has been %d days since your last %s practice.", int(days), skill),
				Priority: math.Max(0, p-0.1),
			})
		}
	}

	order := map[string]int{}
	for i, sk := range types.Skills {
		order[sk] = i
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Priority != cands[j].Priority {
			return cands[i].Priority > cands[j].Priority
		}
		return order[cands[i].Skill] < order[cands[j].Skill]
	})
	if len(cands) > maxOpenRecommendations {
		cands = cands[:maxOpenRecommendations]
	}
	out, err := s.recs.ReplaceOpen(dbc, userID, cands)
	if err != nil {
		return nil, fmt.Errorf("replace recommendations: %w", err)
	}
	return out, nil
}

func (s *recommendationService) attachContent(dbc dbctx.Context, rec *types.Recommendation, skill, module string, difficulty float64, used []uuid.UUID) []uuid.UUID {
	items, err := s.content.Nearest(dbc, skill, module, difficulty, used, 1)
	if err != nil {
		s.log.Warn("Content lookup failed", "skill", skill, "error", err)
		return used
	}
	if len(items) == 0 {
		return used
	}
	id := items[0].ID
	rec.ContentItemID = &id
	return append(used, id)
}

func practiceReason(skill string, gap, days float64) string {
	switch {
	case gap >= 1:
		return fmt.Sprintf("Your %s band is %.1f below your target.", skill, gap)
	case gap > 0:
		return fmt.Sprintf("You are half a band from your %s target.", skill)
	case days >= staleAfterDays:
		return fmt.Sprintf("Keep %s at target with regular practice.", skill)
	default:
		return fmt.Sprintf("You are at target in %s; practice slightly harder material.", skill)
	}
}

func humanCriterion(c string) string {
	switch c {
	case scoring.CriterionCoherenceCohesion:
		return "coherence and cohesion"
	case scoring.CriterionGrammaticalRange:
		return "grammatical range and accuracy"
	case scoring.CriterionFluencyCoherence:
		return "fluency and coherence"
	}
	return strings.ReplaceAll(c, "_", " ")
}

func criterionReason(criterion string, band float64) string {
	r := fmt.Sprintf("%s is your weakest criterion at band %.1f.", humanCriterion(criterion), band)
	if d, ok := scoring.Descriptor(criterion, band+1); ok {
		r += " Next level: " + d
	}
	return strings.ToUpper(r[:1]) + r[1:]
}

func (s *recommendationService) List(ctx context.Context) ([]*types.Recommendation, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.recs.ListOpen(dbctx.Context{Ctx: ctx}, uid)
}

func (s *recommendationService) Dismiss(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, learning.RecommendationDismissed)
}

func (s *recommendationService) MarkDone(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, learning.RecommendationDone)
}

func (s *recommendationService) setStatus(ctx context.Context, id uuid.UUID, status string) error {
	uid, err := requestUserID(ctx)
	if err != nil {
		return err
	}
	ok, err := s.recs.UpdateStatus(dbctx.Context{Ctx: ctx}, uid, id, status)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("recommendation_not_found")
	}
	return nil
}
