package workflows

import "errors"

var (
	// ErrWorkflowNotFound is returned when a workflow is not registered
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrAlreadyRunning is returned when a run is requested while another is active
	ErrAlreadyRunning = errors.New("a job is already running")

	// ErrNotReady is returned when a request's preconditions are not met
	ErrNotReady = errors.New("not ready to run")

	// ErrJobFailed wraps the reason a started job ended in the failed state
	ErrJobFailed = errors.New("job failed")

	// ErrRunNotFound is returned when no status is recorded for a run id
	ErrRunNotFound = errors.New("run not found")
)
