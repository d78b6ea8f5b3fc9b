package tutor

import (
	"context"
	"testing"

	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/tutor"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
)

func TestTutorMessagesAreSequencedPerThread(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	threads := NewTutorThreadRepo(db, testutil.Logger(t))
	msgs := NewTutorMessageRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "tutor@example.com")
	th := &types.TutorThread{UserID: u.ID, Title: "Cohesion"}
	if err := threads.Create(dbc, th); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i, content := range []string{"hi", "hello", "how do I link ideas?"} {
		role := tutor.RoleUser
		if i%2 == 1 {
			role = tutor.RoleAssistant
		}
		m := &types.TutorMessage{ThreadID: th.ID, UserID: u.ID, Role: role, Content: content}
		if err := msgs.Append(dbc, m); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if m.Seq != int64(i+1) {
			t.Fatalf("Append %d: got seq %d want %d", i, m.Seq, i+1)
		}
	}

	recent, err := msgs.ListRecent(dbc, th.ID, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 2 || recent[0].Seq != 2 || recent[1].Seq != 3 {
		t.Fatalf("ListRecent: got %+v", recent)
	}

	got, err := threads.GetForUser(dbc, u.ID, th.ID)
	if err != nil || got == nil || got.NextSeq != 4 || got.LastMessageAt == nil {
		t.Fatalf("GetForUser: got %+v err %v", got, err)
	}
}

func TestTutorThreadDeleteRemovesMessages(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	threads := NewTutorThreadRepo(db, testutil.Logger(t))
	msgs := NewTutorMessageRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "tutor-delete@example.com")
	other := testutil.SeedUser(t, ctx, tx, "tutor-delete-other@example.com")
	th := &types.TutorThread{UserID: u.ID, Title: "Paraphrasing"}
	if err := threads.Create(dbc, th); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, content := range []string{"q", "a"} {
		if err := msgs.Append(dbc, &types.TutorMessage{ThreadID: th.ID, UserID: u.ID, Role: tutor.RoleUser, Content: content}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	ok, err := threads.Delete(dbc, other.ID, th.ID)
	if err != nil || ok {
		t.Fatalf("Delete by other user: got %v err %v", ok, err)
	}
	if recent, _ := msgs.ListRecent(dbc, th.ID, 10); len(recent) != 2 {
		t.Fatalf("messages after foreign delete: got %d want 2", len(recent))
	}

	ok, err = threads.Delete(dbc, u.ID, th.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: got %v err %v", ok, err)
	}
	recent, err := msgs.ListRecent(dbc, th.ID, 10)
	if err != nil || len(recent) != 0 {
		t.Fatalf("ListRecent after delete: got %d err %v", len(recent), err)
	}
	var soft int64
	if err := tx.Unscoped().Model(&types.TutorMessage{}).
		Where("thread_id = ? AND deleted_at IS NOT NULL", th.ID).Count(&soft).Error; err != nil {
		t.Fatalf("count soft-deleted: %v", err)
	}
	if soft != 2 {
		t.Fatalf("soft-deleted messages: got %d want 2", soft)
	}
}
