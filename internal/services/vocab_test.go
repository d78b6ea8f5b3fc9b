package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
)

func TestVocabReviewSchedulesNextDue(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewVocabService(log, repos.NewVocabCardRepo(db, log)).(*vocabService)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.nowFunc = func() time.Time { return now }

	u := seedUser(t)
	ctx := userCtx(u.ID)
	card, err := svc.AddCard(ctx, VocabInput{Word: "  Ubiquitous ", Definition: "found everywhere"})
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if card.Word != "ubiquitous" {
		t.Fatalf("AddCard word: got %q", card.Word)
	}
	_, err = svc.AddCard(ctx, VocabInput{Word: "UBIQUITOUS"})
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusConflict {
		t.Fatalf("AddCard duplicate: got %v, want 409", err)
	}

	due, total, err := svc.ListDue(ctx, 0)
	if err != nil || total != 1 || len(due) != 1 {
		t.Fatalf("ListDue: got %d/%d err %v", len(due), total, err)
	}

	_, err = svc.Review(ctx, card.ID, 6)
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusBadRequest {
		t.Fatalf("Review quality 6: got %v, want 400", err)
	}
	reviewed, err := svc.Review(ctx, card.ID, 5)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.Repetitions != 1 || reviewed.IntervalDays != 1 || !reviewed.NextReviewAt.After(now) {
		t.Fatalf("Review: got reps=%d interval=%d next=%v", reviewed.Repetitions, reviewed.IntervalDays, reviewed.NextReviewAt)
	}
	if _, total, _ := svc.ListDue(ctx, 0); total != 0 {
		t.Fatalf("ListDue after review: got %d, want 0", total)
	}

	if _, err := svc.Review(userCtx(uuid.New()), card.ID, 3); err == nil {
		t.Fatalf("Review other user: expected not found")
	}
	if err := svc.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if err := svc.DeleteCard(ctx, card.ID); err == nil {
		t.Fatalf("DeleteCard twice: expected not found")
	}
}
