package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/realtime"
)

func TestObjectiveSubmitScalesAndRecords(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	progress := newProgressService(t)
	emit := &captureEmitter{}
	svc := NewObjectiveService(db, log,
		repos.NewReadingTestRepo(db, log),
		repos.NewListeningTestRepo(db, log),
		repos.NewContentItemRepo(db, log),
		NewScoreRecorder(log, progress, nil, emit),
	)
	u := seedUser(t)
	ctx := userCtx(u.ID)
	item := testutil.SeedContentItem(t, context.Background(), db, types.SkillReading, "question_set", 6,
		`{"1":"TRUE","2":"colour/color","3":"B","4":["1990","nineteen ninety"]}`)

	attempt, err := svc.Submit(ctx, types.SkillReading, ObjectiveSubmitInput{
		ContentItemID: item.ID,
		Answers:       map[string]string{"1": "true", "2": "Color", "3": "C", "4": "1990"},
		TimeSpentSec:  -5,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if attempt.CorrectCount != 3 || attempt.TotalQuestions != 4 || attempt.RawScore40 != 30 || attempt.Band != 7 {
		t.Fatalf("Submit: got correct=%d total=%d raw40=%d band=%v", attempt.CorrectCount, attempt.TotalQuestions, attempt.RawScore40, attempt.Band)
	}
	if attempt.TimeSpentSec != 0 {
		t.Fatalf("TimeSpentSec: got %d, want 0", attempt.TimeSpentSec)
	}
	if ev := emit.events(); len(ev) != 1 || ev[0] != realtime.SSEEventScoreReady {
		t.Fatalf("events: got %v", ev)
	}

	sum, err := progress.SummaryFor(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("SummaryFor: %v", err)
	}
	for _, p := range sum.Skills {
		if p.Skill == types.SkillReading && (p.Attempts != 1 || p.CurrentBand != 7) {
			t.Fatalf("reading progress: got attempts=%d band=%v", p.Attempts, p.CurrentBand)
		}
	}

	got, err := svc.Get(ctx, types.SkillReading, attempt.ID)
	if err != nil || got.ID != attempt.ID {
		t.Fatalf("Get: got %v err %v", got, err)
	}
	if _, err := svc.Get(ctx, types.SkillListening, attempt.ID); err == nil {
		t.Fatalf("Get as listening: expected not found")
	}
	list, err := svc.List(ctx, types.SkillReading, 0, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: got %d err %v", len(list), err)
	}

	_, err = svc.Submit(ctx, types.SkillListening, ObjectiveSubmitInput{ContentItemID: item.ID})
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusBadRequest {
		t.Fatalf("Submit wrong skill: got %v, want 400", err)
	}
	_, err = svc.Submit(ctx, types.SkillWriting, ObjectiveSubmitInput{ContentItemID: item.ID})
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusBadRequest {
		t.Fatalf("Submit writing: got %v, want 400", err)
	}
	_, err = svc.Submit(ctx, types.SkillReading, ObjectiveSubmitInput{ContentItemID: uuid.New()})
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusNotFound {
		t.Fatalf("Submit unknown item: got %v, want 404", err)
	}
}
