package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

// JobWorkflowName is the Temporal workflow type that drives a single job_run row.
const JobWorkflowName = "job_run"

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	EnqueueIfNeeded(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, bool, error)
	Dispatch(dbc dbctx.Context, jobID uuid.UUID) error
	GetForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	ListForRequestUser(dbc dbctx.Context, jobType string, limit int) ([]*types.JobRun, error)
	CancelForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	RestartForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	notify JobNotifier

	// temporal is nil when jobs run on the DB polling worker.
	temporal          temporalsdkclient.Client
	temporalTaskQueue string
}

func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	notify JobNotifier,
	tc temporalsdkclient.Client,
	taskQueue string,
) JobService {
	return &jobService{
		db:                db,
		log:               baseLog.With("service", "JobService"),
		repo:              repo,
		notify:            notify,
		temporal:          tc,
		temporalTaskQueue: strings.TrimSpace(taskQueue),
	}
}

// Enqueue inserts a queued job_run. System jobs (scheduler) pass uuid.Nil as owner.
func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if strings.TrimSpace(jobType) == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	ctxutil.StampPayload(dbc.Ctx, payload)
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      types.JobStatusQueued,
		Stage:       "queued",
		Message:     "Queued",
		Payload:     datatypes.JSON(b),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if s.notify != nil {
		s.notify.JobCreated(ownerUserID, job)
	}

	// Inside a real transaction the row is invisible to Temporal until commit;
	// callers dispatch afterwards.
	if isDBTransaction(dbc.Tx) {
		s.log.Debug("Job enqueued inside transaction; awaiting dispatch after commit", "job_id", job.ID, "job_type", job.JobType)
		return job, nil
	}
	if err := s.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID); err != nil {
		return job, err
	}
	return job, nil
}

// EnqueueIfNeeded skips the insert when a queued or running job of the same
// type already exists for the owner and entity.
func (s *jobService) EnqueueIfNeeded(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	inner := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}
	exists, err := s.repo.ExistsRunnable(inner, ownerUserID, jobType, entityType, entityID)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, nil
	}
	job, err := s.Enqueue(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Tx}, ownerUserID, jobType, entityType, entityID, payload)
	if err != nil {
		return job, false, err
	}
	return job, true, nil
}

type txCommitter interface {
	Commit() error
	Rollback() error
}

// gorm clones *gorm.DB freely, so pointer comparison cannot detect a transaction.
func isDBTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil || db.Statement.ConnPool == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(txCommitter)
	return ok
}

// Dispatch hands a queued job to Temporal. Without Temporal the DB worker
// claims it on its next poll and Dispatch is a no-op.
func (s *jobService) Dispatch(dbc dbctx.Context, jobID uuid.UUID) error {
	if jobID == uuid.Nil {
		return fmt.Errorf("missing job id")
	}
	if s.temporal == nil {
		return nil
	}
	ctx := ctxutil.Default(dbc.Ctx)

	err := s.startWorkflow(ctx, jobID, enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE)
	if err == nil {
		return nil
	}
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}

	now := time.Now().UTC()
	_ = s.repo.UpdateFields(dbctx.Context{Ctx: ctx}, jobID, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"stage":         "dispatch",
		"message":       "",
		"error":         err.Error(),
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	})
	if s.notify != nil {
		if rows, rerr := s.repo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{jobID}); rerr == nil && len(rows) > 0 {
			s.notify.JobFailed(rows[0].OwnerUserID, rows[0], "dispatch", err.Error())
		}
	}
	return fmt.Errorf("start temporal workflow: %w", err)
}

func (s *jobService) GetForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("not authenticated")
	}
	if jobID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_job_id", "missing job id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	rows, err := s.repo.GetByIDs(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil || rows[0].OwnerUserID != rd.UserID {
		return nil, apierr.NotFound("job_not_found")
	}
	return rows[0], nil
}

func (s *jobService) ListForRequestUser(dbc dbctx.Context, jobType string, limit int) ([]*types.JobRun, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("not authenticated")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.repo.ListByOwner(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, rd.UserID, strings.TrimSpace(jobType), limit)
}

// CancelForRequestUser is idempotent: terminal jobs are returned unchanged.
func (s *jobService) CancelForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	job, err := s.GetForRequestUser(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if types.IsTerminalJobStatus(job.Status) {
		return job, nil
	}
	ctx := ctxutil.Default(dbc.Ctx)
	now := time.Now().UTC()
	ok, err := s.repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx, Tx: dbc.Tx}, jobID,
		[]string{types.JobStatusSucceeded, types.JobStatusFailed, types.JobStatusCanceled},
		map[string]interface{}{
			"status":       types.JobStatusCanceled,
			"message":      "Canceled",
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		// Finished between the read and the update.
		return s.GetForRequestUser(dbc, jobID)
	}
	job.Status = types.JobStatusCanceled
	job.Message = "Canceled"
	job.LockedAt = nil
	job.HeartbeatAt = &now
	job.UpdatedAt = now

	if s.notify != nil {
		s.notify.JobCanceled(job.OwnerUserID, job)
	}
	if s.temporal != nil {
		if cerr := s.temporal.CancelWorkflow(ctx, jobID.String(), ""); cerr != nil {
			var nf *serviceerror.NotFound
			if !errors.As(cerr, &nf) {
				s.log.Warn("Cancel workflow failed", "job_id", jobID, "error", cerr)
			}
		}
	}
	return job, nil
}

// RestartForRequestUser requeues a failed or canceled job with attempts reset.
func (s *jobService) RestartForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	job, err := s.GetForRequestUser(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != types.JobStatusFailed && job.Status != types.JobStatusCanceled {
		return nil, apierr.Conflict("job_not_restartable", "only failed or canceled jobs can be restarted")
	}
	ctx := ctxutil.Default(dbc.Ctx)
	now := time.Now().UTC()
	ok, err := s.repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx, Tx: dbc.Tx}, jobID,
		[]string{types.JobStatusQueued, types.JobStatusRunning, types.JobStatusSucceeded},
		map[string]interface{}{
			"status":        types.JobStatusQueued,
			"stage":         "queued",
			"progress":      0,
			"attempts":      0,
			"message":       "Restarting",
			"error":         "",
			"last_error_at": nil,
			"locked_at":     nil,
			"heartbeat_at":  now,
			"updated_at":    now,
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Conflict("job_not_restartable", "job state changed")
	}
	job.Status = types.JobStatusQueued
	job.Stage = "queued"
	job.Progress = 0
	job.Attempts = 0
	job.Message = "Restarting"
	job.Error = ""
	job.LastErrorAt = nil
	job.LockedAt = nil
	job.HeartbeatAt = &now
	job.UpdatedAt = now

	if s.notify != nil {
		s.notify.JobRestarted(job.OwnerUserID, job)
	}
	if s.temporal != nil {
		if err := s.startWorkflow(ctx, jobID, enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE); err != nil {
			return nil, fmt.Errorf("restart temporal workflow: %w", err)
		}
	}
	return job, nil
}

func (s *jobService) startWorkflow(ctx context.Context, jobID uuid.UUID, reusePolicy enums.WorkflowIdReusePolicy) error {
	tq := s.temporalTaskQueue
	if tq == "" {
		tq = "ielts"
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    jobID.String(),
		TaskQueue:             tq,
		WorkflowIDReusePolicy: reusePolicy,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	_, err := s.temporal.ExecuteWorkflow(ctx, opts, JobWorkflowName, jobID.String())
	return err
}
