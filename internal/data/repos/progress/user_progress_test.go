package progress

import (
	"context"
	"testing"

	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
)

func TestUserProgressRepoUniquePerSkill(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserProgressRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "progress@example.com")

	missing, err := repo.GetForUpdate(dbc, u.ID, "writing")
	if err != nil || missing != nil {
		t.Fatalf("GetForUpdate missing: got %+v err %v", missing, err)
	}

	if err := repo.EnsureRow(dbc, u.ID, "writing"); err != nil {
		t.Fatalf("EnsureRow: %v", err)
	}
	row, err := repo.GetForUpdate(dbc, u.ID, "writing")
	if err != nil || row == nil || row.Attempts != 0 {
		t.Fatalf("GetForUpdate after EnsureRow: got %+v err %v", row, err)
	}
	if err := repo.UpdateFields(dbc, row.ID, map[string]interface{}{"current_band": 6.5, "attempts": 2}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetForUpdate(dbc, u.ID, "writing")
	if err != nil || got == nil || got.CurrentBand != 6.5 || got.Attempts != 2 {
		t.Fatalf("GetForUpdate: got %+v err %v", got, err)
	}

	if err := repo.EnsureRow(dbc, u.ID, "writing"); err != nil {
		t.Fatalf("EnsureRow on existing row: %v", err)
	}
	kept, _ := repo.GetForUpdate(dbc, u.ID, "writing")
	if kept == nil || kept.ID != row.ID || kept.Attempts != 2 {
		t.Fatalf("EnsureRow on existing row: got %+v, want the row untouched", kept)
	}
	sp := tx.SavePoint("dup")
	if sp.Error != nil {
		t.Fatalf("SavePoint: %v", sp.Error)
	}
	if err := tx.Create(&types.UserProgress{UserID: u.ID, Skill: "writing"}).Error; err == nil {
		t.Fatalf("plain insert of duplicate (user, skill): expected unique violation")
	}
	tx.RollbackTo("dup")

	list, err := repo.ListByUser(dbc, u.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByUser: got %d err %v", len(list), err)
	}
}
