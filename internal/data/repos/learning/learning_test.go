package learning

import (
	"context"
	"testing"

	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/learning"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
)

func TestLearningPathRepoLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewLearningPathRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "path@example.com")
	path := &types.LearningPath{
		UserID:     u.ID,
		Title:      "Road to 7",
		TargetBand: 7,
		StartBand:  5.5,
		Status:     learning.PathActive,
		Steps: []*types.LearningPathStep{
			{Position: 2, Skill: "writing", Title: "Task 2 essay", Status: learning.StepPending},
			{Position: 1, Skill: "speaking", Title: "Part 1 warmup", Status: learning.StepPending},
		},
	}
	if err := repo.Create(dbc, path); err != nil {
		t.Fatalf("Create: %v", err)
	}

	active, err := repo.GetActive(dbc, u.ID)
	if err != nil || active == nil {
		t.Fatalf("GetActive: got %v err %v", active, err)
	}
	if len(active.Steps) != 2 || active.Steps[0].Position != 1 {
		t.Fatalf("GetActive: steps not ordered: %+v", active.Steps)
	}

	step := active.Steps[0]
	if err := repo.UpdateStep(dbc, step.ID, map[string]interface{}{"status": learning.StepCompleted}); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	n, err := repo.CountPending(dbc, path.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountPending: got %d err %v want 1", n, err)
	}

	archived, err := repo.ArchiveActive(dbc, u.ID)
	if err != nil || archived != 1 {
		t.Fatalf("ArchiveActive: got %d err %v", archived, err)
	}
	if got, _ := repo.GetActive(dbc, u.ID); got != nil {
		t.Fatalf("GetActive after archive: expected nil")
	}
	if got, _ := repo.GetForUser(dbc, u.ID, path.ID); got == nil || got.Status != learning.PathArchived {
		t.Fatalf("GetForUser: got %+v", got)
	}
}

func TestRecommendationRepoReplaceOpenKeepsHistory(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRecommendationRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "recs@example.com")
	first, err := repo.ReplaceOpen(dbc, u.ID, []*types.Recommendation{
		{Skill: "reading", Kind: learning.RecommendationPractice, Title: "a", Priority: 0.4},
		{Skill: "writing", Kind: learning.RecommendationPractice, Title: "b", Priority: 0.9},
	})
	if err != nil {
		t.Fatalf("ReplaceOpen: %v", err)
	}
	if ok, err := repo.UpdateStatus(dbc, u.ID, first[0].ID, learning.RecommendationDone); err != nil || !ok {
		t.Fatalf("UpdateStatus: got %v err %v", ok, err)
	}

	if _, err := repo.ReplaceOpen(dbc, u.ID, []*types.Recommendation{
		{Skill: "listening", Kind: learning.RecommendationReview, Title: "c", Priority: 0.5},
	}); err != nil {
		t.Fatalf("ReplaceOpen again: %v", err)
	}
	open, err := repo.ListOpen(dbc, u.ID)
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(open) != 1 || open[0].Skill != "listening" {
		t.Fatalf("ListOpen: got %+v", open)
	}

	var total int64
	tx.Model(&types.Recommendation{}).Where("user_id = ?", u.ID).Count(&total)
	if total != 2 {
		t.Fatalf("history rows: got %d want 2", total)
	}
}
