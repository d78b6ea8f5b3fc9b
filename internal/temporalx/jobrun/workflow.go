package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one attempt of a job_run row. A failed attempt fails the
// workflow so the start-time retry policy schedules the next one.
func Workflow(ctx workflow.Context, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		jobID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}
	if jobID == "" {
		return temporal.NewNonRetryableApplicationError("missing job_id", "invalid_job", nil)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivityExecute, jobID).Get(ctx, &out); err != nil {
		return err
	}
	switch out.Status {
	case "failed":
		return fmt.Errorf("job %s failed at stage %s: %s", jobID, out.Stage, out.Error)
	default:
		return nil
	}
}
