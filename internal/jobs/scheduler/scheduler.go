// Package scheduler enqueues the periodic system jobs. Jobs are owned by
// uuid.Nil so no user stream receives their progress.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
)

// Entry is one periodic job. Weekday is nil for daily jobs.
type Entry struct {
	JobType string
	At      string
	Weekday *time.Weekday
}

func monday() *time.Weekday {
	d := time.Monday
	return &d
}

// DefaultEntries are in UTC.
var DefaultEntries = []Entry{
	{JobType: types.JobTypeAnalyticsAggregate, At: "01:00"},
	{JobType: types.JobTypeFileCleanup, At: "03:00"},
	{JobType: types.JobTypeProgressDigest, At: "08:00", Weekday: monday()},
}

type Scheduler struct {
	cron    *gocron.Scheduler
	log     *logger.Logger
	jobs    services.JobService
	entries []Entry
}

func New(baseLog *logger.Logger, jobs services.JobService, entries []Entry) *Scheduler {
	if entries == nil {
		entries = DefaultEntries
	}
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:    cron,
		log:     baseLog.With("component", "Scheduler"),
		jobs:    jobs,
		entries: entries,
	}
}

// Start registers every entry and runs the scheduler in the background until
// ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, e := range s.entries {
		e := e
		var err error
		if e.Weekday != nil {
			_, err = s.cron.Every(1).Week().Weekday(*e.Weekday).At(e.At).Do(s.Trigger, ctx, e.JobType)
		} else {
			_, err = s.cron.Every(1).Day().At(e.At).Do(s.Trigger, ctx, e.JobType)
		}
		if err != nil {
			return fmt.Errorf("schedule %s: %w", e.JobType, err)
		}
		s.log.Info("Scheduled job", "job_type", e.JobType, "at", e.At, "weekly", e.Weekday != nil)
	}
	s.cron.StartAsync()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
	return nil
}

// Trigger enqueues jobType unless one is already queued or running.
func (s *Scheduler) Trigger(ctx context.Context, jobType string) {
	if ctx.Err() != nil {
		return
	}
	dbc := dbctx.Context{Ctx: ctx}
	job, created, err := s.jobs.EnqueueIfNeeded(dbc, uuid.Nil, jobType, "system", nil, map[string]any{
		"triggered_by": "scheduler",
	})
	if err != nil {
		s.log.Error("Scheduled enqueue failed", "job_type", jobType, "error", err)
		return
	}
	if !created {
		s.log.Info("Scheduled job already pending", "job_type", jobType)
		return
	}
	if err := s.jobs.Dispatch(dbc, job.ID); err != nil {
		s.log.Warn("Scheduled dispatch failed", "job_type", jobType, "job_id", job.ID, "error", err)
	}
}
