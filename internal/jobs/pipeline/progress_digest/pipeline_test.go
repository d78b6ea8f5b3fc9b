package progress_digest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/services"
)

type fakeUsers struct {
	repos.UserRepo
	users []*types.User
}

func (f *fakeUsers) ListDigestRecipients(_ dbctx.Context, after uuid.UUID, limit int) ([]*types.User, error) {
	start := 0
	for i, u := range f.users {
		if u.ID == after {
			start = i + 1
		}
	}
	end := min(start+limit, len(f.users))
	return f.users[start:end], nil
}

type fakeDigest struct {
	services.EmailService
	errs map[uuid.UUID]error
	sent int
}

func (f *fakeDigest) SendDigest(_ context.Context, userID uuid.UUID) error {
	f.sent++
	return f.errs[userID]
}

func users(n int) []*types.User {
	out := make([]*types.User, n)
	for i := range out {
		out[i] = &types.User{ID: uuid.New()}
	}
	return out
}

func TestProgressDigestPartialFailureSucceeds(t *testing.T) {
	us := users(pageSize + 2)
	email := &fakeDigest{errs: map[uuid.UUID]error{
		us[0].ID: errors.New("bounce"),
		us[1].ID: services.ErrEmailSkipped,
	}}
	p := New(testutil.Logger(t), &fakeUsers{users: us}, email)
	job := &types.JobRun{JobType: types.JobTypeProgressDigest, Status: types.JobStatusRunning}
	if err := p.Run(jobrt.NewContext(context.Background(), nil, job, nil, nil)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != types.JobStatusSucceeded {
		t.Fatalf("status: got %s (%s)", job.Status, job.Error)
	}
	var res Result
	_ = json.Unmarshal(job.Result, &res)
	if res.Recipients != pageSize+2 || res.Failed != 1 || res.Skipped != 1 || res.Sent != pageSize {
		t.Fatalf("result: got %+v", res)
	}
}

func TestProgressDigestAllFailed(t *testing.T) {
	us := users(2)
	email := &fakeDigest{errs: map[uuid.UUID]error{us[0].ID: errors.New("x"), us[1].ID: errors.New("y")}}
	p := New(testutil.Logger(t), &fakeUsers{users: us}, email)
	job := &types.JobRun{JobType: types.JobTypeProgressDigest, Status: types.JobStatusRunning}
	_ = p.Run(jobrt.NewContext(context.Background(), nil, job, nil, nil))
	if job.Status != types.JobStatusFailed || job.Stage != "send" {
		t.Fatalf("status/stage: got %s/%s", job.Status, job.Stage)
	}
}

func TestProgressPct(t *testing.T) {
	if got := progressPct(0); got != 5 {
		t.Fatalf("progressPct(0): got %d", got)
	}
	if got := progressPct(5000); got != 95 {
		t.Fatalf("progressPct(5000): got %d", got)
	}
}
