package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
)

func TestUserTokenRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "tokens@example.com")
	repo := NewUserTokenRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	live := &types.UserToken{UserID: u.ID, AccessToken: "access-live", RefreshToken: "refresh-live", ExpiresAt: now.Add(time.Hour)}
	stale := &types.UserToken{UserID: u.ID, AccessToken: "access-stale", RefreshToken: "refresh-stale", ExpiresAt: now.Add(-time.Hour)}
	if _, err := repo.Create(dbc, []*types.UserToken{live, stale}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if live.ID == uuid.Nil {
		t.Fatalf("Create: expected generated id")
	}

	got, err := repo.GetByAccessTokens(dbc, []string{"access-live"})
	if err != nil || len(got) != 1 || got[0].RefreshToken != "refresh-live" {
		t.Fatalf("GetByAccessTokens: got %+v err %v", got, err)
	}
	got, err = repo.GetByRefreshTokens(dbc, []string{"refresh-stale"})
	if err != nil || len(got) != 1 || got[0].ID != stale.ID {
		t.Fatalf("GetByRefreshTokens: got %+v err %v", got, err)
	}

	n, err := repo.PurgeExpired(dbc, now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("PurgeExpired: got %d want 1", n)
	}

	second := &types.UserToken{UserID: u.ID, AccessToken: "access-second", RefreshToken: "refresh-second", ExpiresAt: now.Add(time.Hour)}
	if _, err := repo.Create(dbc, []*types.UserToken{second}); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if n, err := repo.FullDeleteByIDs(dbc, []uuid.UUID{second.ID}); err != nil || n != 1 {
		t.Fatalf("FullDeleteByIDs: got %d err %v, want 1", n, err)
	}
	if n, err := repo.FullDeleteByIDs(dbc, []uuid.UUID{second.ID}); err != nil || n != 0 {
		t.Fatalf("FullDeleteByIDs again: got %d err %v, want 0", n, err)
	}

	if err := repo.FullDeleteByUserIDs(dbc, []uuid.UUID{u.ID}); err != nil {
		t.Fatalf("FullDeleteByUserIDs: %v", err)
	}
	got, _ = repo.GetByAccessTokens(dbc, []string{"access-live"})
	if len(got) != 0 {
		t.Fatalf("FullDeleteByUserIDs: token still present")
	}
}
