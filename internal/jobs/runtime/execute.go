package runtime

import (
	"fmt"
	"time"

	"github.com/yungbote/ielts-backend/internal/observability"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

// Execute runs the registered handler for jc.Job, converting a missing
// handler, a returned error or a panic into a failed job. Both the polling
// worker and the Temporal activity go through here.
func Execute(reg *Registry, jc *Context, log *logger.Logger) (err error) {
	job := jc.Job
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
			err = fmt.Errorf("panic in %s handler: %v", job.JobType, r)
			jc.Fail("panic", err)
		}
		status := job.Status
		if err != nil && status == "" {
			status = "failed"
		}
		observability.Current().ObserveJob(job.JobType, status, time.Since(start))
	}()

	h, ok := reg.Get(job.JobType)
	if !ok {
		err = fmt.Errorf("no handler registered for job_type=%s", job.JobType)
		log.Warn("No handler registered", "job_id", job.ID, "job_type", job.JobType)
		jc.Fail("dispatch", err)
		return err
	}
	if runErr := h.Run(jc); runErr != nil {
		// Most pipelines fail themselves; this covers the ones that only return.
		if job.Status != "failed" {
			jc.Fail("run", runErr)
		}
		return runErr
	}
	return nil
}
