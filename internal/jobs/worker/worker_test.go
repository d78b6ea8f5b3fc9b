package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(ev string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) JobCreated(uuid.UUID, *types.JobRun) { n.add("created") }
func (n *recordingNotifier) JobProgress(uuid.UUID, *types.JobRun, string, int, string) {
	n.add("progress")
}
func (n *recordingNotifier) JobFailed(uuid.UUID, *types.JobRun, string, string) { n.add("failed") }
func (n *recordingNotifier) JobDone(uuid.UUID, *types.JobRun)                   { n.add("done") }
func (n *recordingNotifier) JobCanceled(uuid.UUID, *types.JobRun)               { n.add("canceled") }
func (n *recordingNotifier) JobRestarted(uuid.UUID, *types.JobRun)              { n.add("restarted") }

type funcHandler struct {
	jobType string
	run     func(jc *runtime.Context) error
}

func (h funcHandler) Type() string                  { return h.jobType }
func (h funcHandler) Run(jc *runtime.Context) error { return h.run(jc) }

func enqueue(t *testing.T, repo repos.JobRunRepo, jobType string, payload string) *types.JobRun {
	t.Helper()
	job := &types.JobRun{
		OwnerUserID: uuid.New(),
		JobType:     jobType,
		Status:      types.JobStatusQueued,
		Stage:       "queued",
		Payload:     datatypes.JSON([]byte(payload)),
		Result:      datatypes.JSON([]byte("{}")),
	}
	if _, err := repo.Create(dbctx.Context{Ctx: context.Background()}, []*types.JobRun{job}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return job
}

func reload(t *testing.T, repo repos.JobRunRepo, id uuid.UUID) *types.JobRun {
	t.Helper()
	rows, err := repo.GetByIDs(dbctx.Context{Ctx: context.Background()}, []uuid.UUID{id})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: %v (%d rows)", err, len(rows))
	}
	return rows[0]
}

func TestWorkerRunOnceOutcomes(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	notify := &recordingNotifier{}

	reg := runtime.NewRegistry()
	mustRegister := func(h runtime.Handler) {
		if err := reg.Register(h); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	var seen string
	mustRegister(funcHandler{jobType: "test_ok", run: func(jc *runtime.Context) error {
		seen = jc.PayloadString("word")
		jc.Progress("halfway", 50, "working")
		jc.Succeed("done", map[string]any{"ok": true})
		return nil
	}})
	mustRegister(funcHandler{jobType: "test_err", run: func(jc *runtime.Context) error {
		return errors.New("upstream unavailable")
	}})
	mustRegister(funcHandler{jobType: "test_panic", run: func(jc *runtime.Context) error {
		panic("boom")
	}})
	if err := reg.Register(funcHandler{jobType: "test_ok"}); err == nil {
		t.Fatalf("duplicate Register: expected error")
	}

	w := NewWorker(db, log, repo, reg, notify)

	cases := []struct {
		jobType   string
		payload   string
		wantState string
		wantStage string
	}{
		{"test_ok", `{"word":"cohesion"}`, types.JobStatusSucceeded, "done"},
		{"test_err", `{}`, types.JobStatusFailed, "run"},
		{"test_panic", `{}`, types.JobStatusFailed, "panic"},
		{"test_unknown", `{}`, types.JobStatusFailed, "dispatch"},
	}
	for _, tc := range cases {
		t.Run(tc.jobType, func(t *testing.T) {
			job := enqueue(t, repo, tc.jobType, tc.payload)
			if !w.RunOnce(context.Background()) {
				t.Fatalf("RunOnce: no job claimed")
			}
			got := reload(t, repo, job.ID)
			if got.Status != tc.wantState || got.Stage != tc.wantStage {
				t.Fatalf("status/stage: got %s/%s want %s/%s", got.Status, got.Stage, tc.wantState, tc.wantStage)
			}
			if got.Attempts != 1 {
				t.Fatalf("attempts: got %d want 1", got.Attempts)
			}
		})
	}
	if seen != "cohesion" {
		t.Fatalf("payload: got %q want cohesion", seen)
	}
	if w.RunOnce(context.Background()) {
		t.Fatalf("RunOnce: expected empty queue (failed jobs wait for retry delay)")
	}
}

func TestWorkerDoesNotOverwriteCanceledJob(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	notify := &recordingNotifier{}

	reg := runtime.NewRegistry()
	_ = reg.Register(funcHandler{jobType: "test_cancel_mid_run", run: func(jc *runtime.Context) error {
		// Simulates the owner canceling while the handler runs.
		if err := repo.UpdateFields(dbctx.Context{Ctx: jc.Ctx}, jc.Job.ID, map[string]interface{}{"status": types.JobStatusCanceled}); err != nil {
			return err
		}
		if !jc.Canceled() {
			t.Errorf("Canceled: got false want true")
		}
		jc.Succeed("done", nil)
		return nil
	}})
	job := enqueue(t, repo, "test_cancel_mid_run", `{}`)
	w := NewWorker(db, log, repo, reg, notify)
	if !w.RunOnce(context.Background()) {
		t.Fatalf("RunOnce: no job claimed")
	}
	if got := reload(t, repo, job.ID); got.Status != types.JobStatusCanceled {
		t.Fatalf("status: got %s want canceled", got.Status)
	}
	for _, ev := range notify.events {
		if ev == "done" {
			t.Fatalf("done notification sent for canceled job: %v", notify.events)
		}
	}
}
