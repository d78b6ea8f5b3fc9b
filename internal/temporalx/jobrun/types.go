package jobrun

const (
	WorkflowName    = "job_run"
	ActivityExecute = "job_run_execute"
)

// Result is what the execute activity reports back to the workflow.
type Result struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Stage   string `json:"stage,omitempty"`
	Error   string `json:"error,omitempty"`
	Attempt int    `json:"attempt"`
}
