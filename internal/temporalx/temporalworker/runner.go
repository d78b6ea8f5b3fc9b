package temporalworker

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/platform/envutil"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
	"github.com/yungbote/ielts-backend/internal/temporalx"
	"github.com/yungbote/ielts-backend/internal/temporalx/jobrun"
)

// Runner hosts the job_run workflow and its activity on the configured task queue.
type Runner struct {
	log *logger.Logger
	cfg temporalx.Config
	w   worker.Worker
}

func NewRunner(
	log *logger.Logger,
	cfg temporalx.Config,
	tc temporalsdkclient.Client,
	db *gorm.DB,
	jobRepo repos.JobRunRepo,
	registry *jobrt.Registry,
	notify services.JobNotifier,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if db == nil || jobRepo == nil || registry == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &jobrun.Activities{
		Log:      log.With("component", "TemporalJobActivity"),
		DB:       db,
		Jobs:     jobRepo,
		Registry: registry,
		Notify:   notify,
	}
	w.RegisterWorkflowWithOptions(jobrun.Workflow, workflow.RegisterOptions{Name: jobrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Execute, activity.RegisterOptions{Name: jobrun.ActivityExecute})
	return &Runner{log: log.With("component", "TemporalWorker"), cfg: cfg, w: w}, nil
}

// Start begins polling and stops the worker when ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.w.Start(); err != nil {
		return fmt.Errorf("start temporal worker (namespace=%s task_queue=%s): %w", r.cfg.Namespace, r.cfg.TaskQueue, err)
	}
	r.log.Info("Temporal worker started", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)
	go func() {
		<-ctx.Done()
		r.w.Stop()
	}()
	return nil
}
