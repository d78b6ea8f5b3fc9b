package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
)

// lockstepTokens holds every refresh lookup until all callers have read the
// same row, so the rotations that follow overlap.
type lockstepTokens struct {
	repos.UserTokenRepo
	reads *sync.WaitGroup
}

func (l *lockstepTokens) GetByRefreshTokens(dbc dbctx.Context, refreshTokens []string) ([]*types.UserToken, error) {
	rows, err := l.UserTokenRepo.GetByRefreshTokens(dbc, refreshTokens)
	l.reads.Done()
	l.reads.Wait()
	return rows, err
}

func newAuthService(t *testing.T, tokens repos.UserTokenRepo) AuthService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewAuthService(db, log, repos.NewUserRepo(db, log), tokens, nil, nil, AuthConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
}

func seedSession(t *testing.T, expiresAt time.Time) (*types.User, string) {
	t.Helper()
	u := seedUser(t)
	row := &types.UserToken{
		UserID:       u.ID,
		AccessToken:  "access-" + u.ID.String(),
		RefreshToken: "refresh-" + u.ID.String(),
		ExpiresAt:    expiresAt,
	}
	tokens := repos.NewUserTokenRepo(testutil.DB(t), testutil.Logger(t))
	if _, err := tokens.Create(dbctx.Context{Ctx: context.Background()}, []*types.UserToken{row}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return u, row.RefreshToken
}

func TestRefreshRotatesOnce(t *testing.T) {
	tokens := repos.NewUserTokenRepo(testutil.DB(t), testutil.Logger(t))
	svc := newAuthService(t, tokens)
	_, refresh := seedSession(t, time.Now().UTC().Add(time.Hour))

	sess, err := svc.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sess.RefreshToken == refresh || sess.AccessToken == "" {
		t.Fatalf("Refresh: got %+v, want a new token pair", sess)
	}
	_, err = svc.Refresh(context.Background(), refresh)
	if e, ok := apierr.As(err); !ok || e.Status != http.StatusUnauthorized {
		t.Fatalf("reuse old refresh token: got %v, want 401", err)
	}
	if _, err := svc.Refresh(context.Background(), sess.RefreshToken); err != nil {
		t.Fatalf("Refresh with rotated token: %v", err)
	}
}

func TestRefreshConcurrentUseWinsOnce(t *testing.T) {
	const callers = 2
	reads := &sync.WaitGroup{}
	reads.Add(callers)
	tokens := &lockstepTokens{UserTokenRepo: repos.NewUserTokenRepo(testutil.DB(t), testutil.Logger(t)), reads: reads}
	svc := newAuthService(t, tokens)
	_, refresh := seedSession(t, time.Now().UTC().Add(time.Hour))

	errs := make([]error, callers)
	var done sync.WaitGroup
	for i := 0; i < callers; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			_, errs[i] = svc.Refresh(context.Background(), refresh)
		}(i)
	}
	done.Wait()

	ok, rejected := 0, 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		if e, isAPI := apierr.As(err); isAPI && e.Status == http.StatusUnauthorized {
			rejected++
			continue
		}
		t.Fatalf("Refresh: unexpected error %v", err)
	}
	if ok != 1 || rejected != 1 {
		t.Fatalf("concurrent refresh: got %d ok %d rejected, want 1/1", ok, rejected)
	}
}

func TestRefreshExpired(t *testing.T) {
	tokens := repos.NewUserTokenRepo(testutil.DB(t), testutil.Logger(t))
	svc := newAuthService(t, tokens)
	_, refresh := seedSession(t, time.Now().UTC().Add(-time.Minute))

	_, err := svc.Refresh(context.Background(), refresh)
	if e, ok := apierr.As(err); !ok || e.Status != http.StatusUnauthorized {
		t.Fatalf("expired: got %v, want 401", err)
	}
	left, _ := tokens.GetByRefreshTokens(dbctx.Context{Ctx: context.Background()}, []string{refresh})
	if len(left) != 0 {
		t.Fatalf("expired session row was not removed")
	}
	if _, err := svc.Refresh(context.Background(), "  "); err == nil {
		t.Fatalf("blank refresh token: expected error")
	}
}
