package jobrun

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
)

type Activities struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Jobs     repos.JobRunRepo
	Registry *jobrt.Registry
	Notify   services.JobNotifier
}

func (a *Activities) Execute(ctx context.Context, jobID string) (Result, error) {
	res := Result{JobID: jobID}
	id, err := uuid.Parse(jobID)
	if err != nil || id == uuid.Nil {
		return res, temporal.NewNonRetryableApplicationError("invalid job_id", "invalid_job", err)
	}
	job, err := a.load(ctx, id)
	if err != nil {
		return res, err
	}
	if job == nil {
		return res, temporal.NewNonRetryableApplicationError("job not found", "job_not_found", nil)
	}
	if job.Status == types.JobStatusSucceeded || job.Status == types.JobStatusCanceled {
		res.Status, res.Stage = job.Status, job.Stage
		return res, nil
	}

	now := time.Now().UTC()
	claimed, err := a.Jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx, Tx: a.DB}, id,
		[]string{types.JobStatusSucceeded, types.JobStatusCanceled},
		map[string]interface{}{
			"status":       types.JobStatusRunning,
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	if err != nil {
		return res, fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		res.Status = types.JobStatusCanceled
		return res, nil
	}
	job.Status = types.JobStatusRunning
	job.Attempts++
	job.LockedAt = &now
	job.HeartbeatAt = &now

	stop := a.heartbeat(ctx, id)
	defer stop()

	jc := jobrt.NewContext(ctx, a.DB, job, a.Jobs, a.Notify)
	runErr := jobrt.Execute(a.Registry, jc, a.Log)

	res.Status, res.Stage, res.Attempt = job.Status, job.Stage, job.Attempts
	if runErr != nil {
		res.Error = runErr.Error()
	}
	// Handlers that return nil without finishing are treated as done.
	if runErr == nil && job.Status == types.JobStatusRunning {
		jc.Succeed("done", nil)
		res.Status = job.Status
	}
	return res, nil
}

func (a *Activities) load(ctx context.Context, id uuid.UUID) (*types.JobRun, error) {
	rows, err := a.Jobs.GetByIDs(dbctx.Context{Ctx: ctx, Tx: a.DB}, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (a *Activities) heartbeat(ctx context.Context, id uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		temporalHB := time.NewTicker(10 * time.Second)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(30 * time.Second)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				activity.RecordHeartbeat(ctx)
			case <-dbHB.C:
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx, Tx: a.DB}, id)
			}
		}
	}()
	return func() { close(done) }
}
