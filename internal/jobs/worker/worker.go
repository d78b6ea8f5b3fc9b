package worker

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/envutil"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
)

const (
	maxAttempts  = 5
	retryDelay   = 30 * time.Second
	staleRunning = 30 * time.Minute
)

// Worker polls job_run with FOR UPDATE SKIP LOCKED so several instances can
// share one table.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier

	concurrency  int
	pollInterval time.Duration
	wg           sync.WaitGroup
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier) *Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		db:           db,
		log:          baseLog.With("component", "JobWorker"),
		repo:         repo,
		registry:     registry,
		notify:       notify,
		concurrency:  concurrency,
		pollInterval: time.Second,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.concurrency, "job_types", w.registry.Types())
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.runLoop(ctx, i+1)
	}
}

// Wait blocks until every loop has observed ctx cancellation.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain while there is work so a burst doesn't wait a tick per job.
			for w.RunOnce(ctx) {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// RunOnce claims and executes at most one job. It reports whether a job was run.
func (w *Worker) RunOnce(ctx context.Context) bool {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx, Tx: w.db}, maxAttempts, retryDelay, staleRunning)
	if err != nil {
		w.log.Warn("ClaimNextRunnable failed", "error", err)
		return false
	}
	if job == nil {
		return false
	}
	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.notify)
	if err := runtime.Execute(w.registry, jc, w.log); err != nil {
		w.log.Warn("Job failed", "job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts, "error", err)
	}
	return true
}
