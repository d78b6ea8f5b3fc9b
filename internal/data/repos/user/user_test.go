package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewUserRepo(db, testutil.Logger(t))

	created, err := repo.Create(dbc, []*types.User{
		{Email: "userrepo@example.com", Password: "pw", FirstName: "A", LastName: "B", Role: "student", TargetBand: 7, ExamModule: "academic", EmailOptIn: true},
		{Email: "quiet@example.com", Password: "pw", FirstName: "C", LastName: "D", Role: "student", TargetBand: 6, ExamModule: "general"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 2 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: unexpected result: %+v", created)
	}

	gotByIDs, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(gotByIDs) != 1 || gotByIDs[0].ID != created[0].ID {
		t.Fatalf("GetByIDs: unexpected result: %+v", gotByIDs)
	}

	gotByEmails, err := repo.GetByEmails(dbc, []string{"  UserRepo@Example.com "})
	if err != nil {
		t.Fatalf("GetByEmails: %v", err)
	}
	if len(gotByEmails) != 1 || gotByEmails[0].ID != created[0].ID {
		t.Fatalf("GetByEmails: unexpected result: %+v", gotByEmails)
	}

	exists, err := repo.EmailExists(dbc, "does-not-exist@example.com")
	if err != nil {
		t.Fatalf("EmailExists: %v", err)
	}
	if exists {
		t.Fatalf("EmailExists: expected false")
	}

	if err := repo.UpdateFields(dbc, created[1].ID, map[string]interface{}{"target_band": 7.5}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	reloaded, _ := repo.GetByIDs(dbc, []uuid.UUID{created[1].ID})
	if reloaded[0].TargetBand != 7.5 {
		t.Fatalf("UpdateFields: target_band got %v", reloaded[0].TargetBand)
	}

	recipients, err := repo.ListDigestRecipients(dbc, uuid.Nil, 10)
	if err != nil {
		t.Fatalf("ListDigestRecipients: %v", err)
	}
	for _, r := range recipients {
		if r.ID == created[1].ID {
			t.Fatalf("ListDigestRecipients: opted-out user returned")
		}
	}
}
