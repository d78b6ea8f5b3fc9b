package vocab

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
)

func TestVocabCardRepoListDue(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewVocabCardRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "vocab@example.com")
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cards := []*types.VocabCard{
		{UserID: u.ID, Word: "ubiquitous", EaseFactor: 2.5, NextReviewAt: now.Add(-48 * time.Hour)},
		{UserID: u.ID, Word: "mitigate", EaseFactor: 2.5, NextReviewAt: now.Add(-time.Hour)},
		{UserID: u.ID, Word: "salient", EaseFactor: 2.5, NextReviewAt: now.Add(24 * time.Hour)},
	}
	for _, c := range cards {
		if err := repo.Create(dbc, c); err != nil {
			t.Fatalf("Create %s: %v", c.Word, err)
		}
	}

	due, err := repo.ListDue(dbc, u.ID, now, 10)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(due) != 2 || due[0].Word != "ubiquitous" || due[1].Word != "mitigate" {
		t.Fatalf("ListDue: got %+v", due)
	}
	n, err := repo.CountDue(dbc, u.ID, now)
	if err != nil || n != 2 {
		t.Fatalf("CountDue: got %d err %v", n, err)
	}

	ok, err := repo.Delete(dbc, u.ID, cards[2].ID)
	if err != nil || !ok {
		t.Fatalf("Delete: got %v err %v", ok, err)
	}
	again := &types.VocabCard{UserID: u.ID, Word: "salient", EaseFactor: 2.5, NextReviewAt: now}
	if err := repo.Create(dbc, again); err != nil {
		t.Fatalf("re-create after delete: %v", err)
	}
}
