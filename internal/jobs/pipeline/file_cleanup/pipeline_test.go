package file_cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/gcp"
)

type fakeSessions struct {
	repos.SpeakingSessionRepo
	rows    []*types.SpeakingSession
	deleted []uuid.UUID
	cutoff  time.Time
}

func (f *fakeSessions) ListPurgeable(_ dbctx.Context, before time.Time, _ int) ([]*types.SpeakingSession, error) {
	f.cutoff = before
	out := f.rows
	f.rows = nil
	return out, nil
}

func (f *fakeSessions) HardDelete(_ dbctx.Context, ids []uuid.UUID) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeSubmissions struct {
	repos.WritingSubmissionRepo
	rows []*types.WritingSubmission
	err  error
}

func (f *fakeSubmissions) ListPurgeable(dbctx.Context, time.Time, int) ([]*types.WritingSubmission, error) {
	out := f.rows
	f.rows = nil
	return out, f.err
}

func (f *fakeSubmissions) HardDelete(dbctx.Context, []uuid.UUID) error { return nil }

type fakeTokens struct{ repos.UserTokenRepo }

func (fakeTokens) PurgeExpired(dbctx.Context, time.Time) (int64, error) { return 3, nil }

type fakeBucket struct {
	gcp.BucketService
	errs map[string]error
	keys []string
}

func (f *fakeBucket) Delete(_ context.Context, _ gcp.BucketCategory, key string) error {
	f.keys = append(f.keys, key)
	return f.errs[key]
}

func TestFileCleanupPurgesRowsAndObjects(t *testing.T) {
	sessions := &fakeSessions{rows: []*types.SpeakingSession{
		{ID: uuid.New(), AudioBucketKey: "a.webm"},
		{ID: uuid.New(), AudioBucketKey: "gone.webm"},
		{ID: uuid.New()},
	}}
	subs := &fakeSubmissions{rows: []*types.WritingSubmission{{ID: uuid.New(), SourceBucketKey: "scan.jpg"}}}
	bucket := &fakeBucket{errs: map[string]error{
		"gone.webm": gcp.ErrObjectNotFound,
		"scan.jpg":  errors.New("permission denied"),
	}}
	p := New(testutil.Logger(t), sessions, subs, fakeTokens{}, bucket, 7)

	job := &types.JobRun{JobType: types.JobTypeFileCleanup, Status: types.JobStatusRunning}
	if err := p.Run(jobrt.NewContext(context.Background(), nil, job, nil, nil)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != types.JobStatusSucceeded {
		t.Fatalf("status: got %s (%s)", job.Status, job.Error)
	}
	var res Result
	if err := json.Unmarshal(job.Result, &res); err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.SessionsPurged != 3 || res.WritingsPurged != 1 || res.ObjectsDeleted != 2 || res.ObjectsFailed != 1 || res.TokensPurged != 3 {
		t.Fatalf("result: got %+v", res)
	}
	if len(bucket.keys) != 3 {
		t.Fatalf("bucket deletes: got %v, want keyless rows skipped", bucket.keys)
	}
	if age := time.Since(sessions.cutoff); age < 7*24*time.Hour-time.Minute || age > 7*24*time.Hour+time.Minute {
		t.Fatalf("cutoff: got %v ago, want 7 days", age)
	}
}

func TestFileCleanupFailsOnRepoError(t *testing.T) {
	p := New(testutil.Logger(t), &fakeSessions{}, &fakeSubmissions{err: errors.New("db down")}, fakeTokens{}, nil, 0)
	if p.retentionDays != DefaultRetentionDays {
		t.Fatalf("retentionDays: got %d, want default", p.retentionDays)
	}
	job := &types.JobRun{JobType: types.JobTypeFileCleanup, Status: types.JobStatusRunning}
	_ = p.Run(jobrt.NewContext(context.Background(), nil, job, nil, nil))
	if job.Status != types.JobStatusFailed || job.Stage != "writing" {
		t.Fatalf("status/stage: got %s/%s", job.Status, job.Stage)
	}
}
