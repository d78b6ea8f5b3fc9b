package assessment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
)

func TestSpeakingSessionRepoLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSpeakingSessionRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "speaker@example.com")
	s := &types.SpeakingSession{UserID: u.ID, Part: 2, Prompt: "Describe a journey", Status: "created"}
	if err := repo.Create(dbc, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got, err := repo.GetForUser(dbc, uuid.New(), s.ID); err != nil || got != nil {
		t.Fatalf("GetForUser other user: got %+v err %v", got, err)
	}
	if err := repo.UpdateFields(dbc, s.ID, map[string]interface{}{"status": "scored", "band": 6.5}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetForUser(dbc, u.ID, s.ID)
	if err != nil || got == nil {
		t.Fatalf("GetForUser: got %+v err %v", got, err)
	}
	if got.Status != "scored" || got.Band == nil || *got.Band != 6.5 {
		t.Fatalf("GetForUser: unexpected row %+v", got)
	}

	list, err := repo.ListByUser(dbc, u.ID, 10, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByUser: got %d err %v", len(list), err)
	}

	deleted, err := repo.SoftDelete(dbc, u.ID, s.ID)
	if err != nil || !deleted {
		t.Fatalf("SoftDelete: got %v err %v", deleted, err)
	}
	if again, _ := repo.GetByID(dbc, s.ID); again != nil {
		t.Fatalf("GetByID after delete: expected nil")
	}

	purge, err := repo.ListPurgeable(dbc, time.Now().UTC().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("ListPurgeable: %v", err)
	}
	found := false
	for _, p := range purge {
		if p.ID == s.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("ListPurgeable: deleted session missing")
	}
	if err := repo.HardDelete(dbc, []uuid.UUID{s.ID}); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
}

func TestObjectiveTestRepos(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "reader@example.com")
	item := testutil.SeedContentItem(t, ctx, tx, "reading", "question_set", 6, `{"1":"A"}`)

	reading := NewReadingTestRepo(db, testutil.Logger(t))
	listening := NewListeningTestRepo(db, testutil.Logger(t))

	rt := &types.ReadingTest{ObjectiveAttempt: types.ObjectiveAttempt{
		UserID: u.ID, ContentItemID: item.ID, Module: "academic",
		CorrectCount: 30, TotalQuestions: 40, RawScore40: 30, Band: 7,
	}}
	if err := reading.Create(dbc, rt); err != nil {
		t.Fatalf("reading Create: %v", err)
	}
	if rt.ID == uuid.Nil {
		t.Fatalf("reading Create: id not generated")
	}
	got, err := reading.GetForUser(dbc, u.ID, rt.ID)
	if err != nil || got == nil || got.Band != 7 {
		t.Fatalf("reading GetForUser: got %+v err %v", got, err)
	}
	n, err := reading.CountByContentItem(dbc, u.ID, item.ID)
	if err != nil || n != 1 {
		t.Fatalf("reading CountByContentItem: got %d err %v", n, err)
	}

	// Reading and listening live in separate tables.
	lt, err := listening.GetForUser(dbc, u.ID, rt.ID)
	if err != nil || lt != nil {
		t.Fatalf("listening GetForUser: got %+v err %v", lt, err)
	}
	ls, err := listening.ListByUser(dbc, u.ID, 10, 0)
	if err != nil || len(ls) != 0 {
		t.Fatalf("listening ListByUser: got %d err %v", len(ls), err)
	}
}
