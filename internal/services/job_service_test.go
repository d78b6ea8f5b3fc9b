package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/realtime"
)

type captureEmitter struct{ msgs []realtime.SSEMessage }

func (e *captureEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.msgs = append(e.msgs, msg)
}

func (e *captureEmitter) events() []realtime.SSEEvent {
	out := make([]realtime.SSEEvent, 0, len(e.msgs))
	for _, m := range e.msgs {
		out = append(out, m.Event)
	}
	return out
}

func userCtx(userID uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID, Role: "student"})
}

func TestJobServiceLifecycle(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	emit := &captureEmitter{}
	repo := repos.NewJobRunRepo(db, log)
	svc := NewJobService(db, log, repo, NewJobNotifier(emit), nil, "")

	owner := uuid.New()
	ctx := userCtx(owner)
	entity := uuid.New()

	job, created, err := svc.EnqueueIfNeeded(dbctx.Context{Ctx: ctx}, owner, types.JobTypeWritingEvaluate, "writing_submission", &entity, map[string]any{"submission_id": entity.String()})
	if err != nil || !created || job == nil {
		t.Fatalf("EnqueueIfNeeded: job=%v created=%v err=%v", job, created, err)
	}
	if _, again, err := svc.EnqueueIfNeeded(dbctx.Context{Ctx: ctx}, owner, types.JobTypeWritingEvaluate, "writing_submission", &entity, nil); err != nil || again {
		t.Fatalf("EnqueueIfNeeded duplicate: created=%v err=%v", again, err)
	}

	if _, err := svc.GetForRequestUser(dbctx.Context{Ctx: userCtx(uuid.New())}, job.ID); err == nil {
		t.Fatalf("GetForRequestUser other user: expected not found")
	} else if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusNotFound {
		t.Fatalf("GetForRequestUser other user: got %v", err)
	}

	if _, err := svc.RestartForRequestUser(dbctx.Context{Ctx: ctx}, job.ID); err == nil {
		t.Fatalf("Restart queued job: expected conflict")
	}

	canceled, err := svc.CancelForRequestUser(dbctx.Context{Ctx: ctx}, job.ID)
	if err != nil || canceled.Status != types.JobStatusCanceled {
		t.Fatalf("Cancel: got %+v err=%v", canceled, err)
	}
	// Cancel is idempotent.
	if again, err := svc.CancelForRequestUser(dbctx.Context{Ctx: ctx}, job.ID); err != nil || again.Status != types.JobStatusCanceled {
		t.Fatalf("Cancel twice: got %+v err=%v", again, err)
	}

	restarted, err := svc.RestartForRequestUser(dbctx.Context{Ctx: ctx}, job.ID)
	if err != nil || restarted.Status != types.JobStatusQueued || restarted.Attempts != 0 {
		t.Fatalf("Restart: got %+v err=%v", restarted, err)
	}

	list, err := svc.ListForRequestUser(dbctx.Context{Ctx: ctx}, "", 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: got %d err=%v", len(list), err)
	}

	want := []realtime.SSEEvent{realtime.SSEEventJobCreated, realtime.SSEEventJobCanceled, realtime.SSEEventJobRestarted}
	got := emit.events()
	if len(got) != len(want) {
		t.Fatalf("events: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %s want %s", i, got[i], want[i])
		}
	}
	if emit.msgs[0].Channel != realtime.UserChannel(owner) {
		t.Fatalf("channel: got %s", emit.msgs[0].Channel)
	}
}

func TestJobServiceSystemJobsAreNotBroadcast(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	emit := &captureEmitter{}
	svc := NewJobService(db, log, repos.NewJobRunRepo(db, log), NewJobNotifier(emit), nil, "")

	job, err := svc.Enqueue(dbctx.Context{Ctx: context.Background()}, uuid.Nil, types.JobTypeFileCleanup, "", nil, nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.OwnerUserID != uuid.Nil || job.Status != types.JobStatusQueued {
		t.Fatalf("job: got %+v", job)
	}
	if len(emit.msgs) != 0 {
		t.Fatalf("emitted %d messages for a system job", len(emit.msgs))
	}
}
