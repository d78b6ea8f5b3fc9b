package services

import (
	"net/http"
	"testing"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/learning"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
)

func TestAllocateSteps(t *testing.T) {
	weights := map[string]float64{
		types.SkillListening: 1,
		types.SkillReading:   1,
		types.SkillWriting:   2,
		types.SkillSpeaking:  0.5,
	}
	got := AllocateSteps(weights, 10)
	want := map[string]int{
		types.SkillListening: 2,
		types.SkillReading:   2,
		types.SkillWriting:   5,
		types.SkillSpeaking:  1,
	}
	for skill, n := range want {
		if got[skill] != n {
			t.Fatalf("AllocateSteps[%s]: got %d, want %d (all %v)", skill, got[skill], n, got)
		}
	}
	if len(AllocateSteps(weights, 0)) != 0 {
		t.Fatalf("AllocateSteps(0): expected empty")
	}

	order := InterleaveSkills(got, weights)
	if len(order) != 10 {
		t.Fatalf("InterleaveSkills: got %d steps, want 10", len(order))
	}
	head := []string{types.SkillWriting, types.SkillListening, types.SkillReading, types.SkillSpeaking}
	for i, skill := range head {
		if order[i] != skill {
			t.Fatalf("InterleaveSkills[%d]: got %s, want %s (order %v)", i, order[i], skill, order)
		}
	}
}

func TestSkillWeightsFloor(t *testing.T) {
	w := SkillWeights(7, map[string]float64{types.SkillReading: 8, types.SkillWriting: 5})
	if w[types.SkillReading] != minSkillWeight {
		t.Fatalf("above target: got %v, want %v", w[types.SkillReading], minSkillWeight)
	}
	if w[types.SkillWriting] != 2 || w[types.SkillListening] != 7 {
		t.Fatalf("weights: got %v", w)
	}
}

func TestLearningPathLifecycle(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewLearningPathService(db, log,
		repos.NewLearningPathRepo(db, log),
		repos.NewUserProgressRepo(db, log),
		repos.NewUserRepo(db, log),
		repos.NewContentItemRepo(db, log),
	)
	u := seedUser(t)
	ctx := userCtx(u.ID)

	if _, err := svc.GetActive(ctx); err == nil {
		t.Fatalf("GetActive before generate: expected not found")
	}
	if _, err := svc.Generate(ctx, maxPathSteps+1); err == nil {
		t.Fatalf("Generate too many steps: expected error")
	}

	first, err := svc.Generate(ctx, 4)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(first.Steps) != 4 || first.Status != learning.PathActive {
		t.Fatalf("Generate: got %d steps status %s", len(first.Steps), first.Status)
	}
	seen := map[string]bool{}
	for i, s := range first.Steps {
		if s.Position != i+1 || s.Status != learning.StepPending {
			t.Fatalf("step %d: got position=%d status=%s", i, s.Position, s.Status)
		}
		seen[s.Skill] = true
	}
	if len(seen) != len(types.Skills) {
		t.Fatalf("equal weights should cover every skill, got %v", seen)
	}

	path, err := svc.Generate(ctx, 4)
	if err != nil {
		t.Fatalf("Generate again: %v", err)
	}
	all, err := svc.List(ctx, 10)
	if err != nil || len(all) != 2 {
		t.Fatalf("List: got %d err %v", len(all), err)
	}
	active, err := svc.GetActive(ctx)
	if err != nil || active.ID != path.ID {
		t.Fatalf("GetActive: got %v err %v, want newest path", active, err)
	}

	steps := active.Steps
	if _, err := svc.CompleteStep(ctx, steps[0].ID); err != nil {
		t.Fatalf("CompleteStep: %v", err)
	}
	_, err = svc.CompleteStep(ctx, steps[0].ID)
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusConflict {
		t.Fatalf("CompleteStep twice: got %v, want 409", err)
	}
	// A step from the archived path is not reachable.
	if _, err := svc.SkipStep(ctx, first.Steps[0].ID); err == nil {
		t.Fatalf("SkipStep on archived path: expected not found")
	}

	var last *types.LearningPath
	for _, s := range steps[1:] {
		if last, err = svc.SkipStep(ctx, s.ID); err != nil {
			t.Fatalf("SkipStep: %v", err)
		}
	}
	if last.Status != learning.PathCompleted {
		t.Fatalf("path status: got %s, want completed", last.Status)
	}
	if last.Steps[0].Status != learning.StepCompleted || last.Steps[0].CompletedAt == nil {
		t.Fatalf("first step: got %s completed_at=%v", last.Steps[0].Status, last.Steps[0].CompletedAt)
	}
}
