package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/stopmotion-pipeline/internal/logging"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
)

// WorkflowContext contains context for workflow execution
type WorkflowContext struct {
	Ctx     context.Context
	Request pipeline.ProcessRequest
	RunID   string
	Logger  *slog.Logger
}

// WorkflowResult contains the result of workflow execution
type WorkflowResult struct {
	Success bool
	Error   error
	Outputs map[string]interface{}
}

// Workflow defines the interface for processing workflows
type Workflow interface {
	// Execute runs the workflow
	Execute(wctx *WorkflowContext) (*WorkflowResult, error)

	// Name returns the workflow name
	Name() string
}

// RequestValidator is implemented by workflows that can reject a request
// before a run is started. A rejected request leaves no trace.
type RequestValidator interface {
	Validate(req pipeline.ProcessRequest) error
}

// Run states
const (
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// WorkflowStatus represents the status of a workflow execution
type WorkflowStatus struct {
	RunID      string          `json:"run_id"`
	Job        string          `json:"job"`
	State      string          `json:"state"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Result     *WorkflowResult `json:"-"`
	Error      string          `json:"error,omitempty"`
}

// maxStatuses bounds how many finished runs are remembered.
const maxStatuses = 64

// WorkflowRunner executes registered workflows one at a time. A run requested
// while another is active is rejected, never queued.
type WorkflowRunner struct {
	logger *slog.Logger

	mu        sync.Mutex
	workflows map[string]Workflow
	active    string
	statuses  map[string]*WorkflowStatus
	order     []string
	wg        sync.WaitGroup
}

// NewWorkflowRunner creates a new workflow runner
func NewWorkflowRunner(logger *slog.Logger) *WorkflowRunner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WorkflowRunner{
		logger:    logging.NewComponentLogger(logger, "runner"),
		workflows: make(map[string]Workflow),
		statuses:  make(map[string]*WorkflowStatus),
	}
}

// Register registers a workflow
func (r *WorkflowRunner) Register(job string, workflow Workflow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[job] = workflow
}

// Active returns the id of the running job, if any.
func (r *WorkflowRunner) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.active != ""
}

// start claims the single run slot for req.
func (r *WorkflowRunner) start(req pipeline.ProcessRequest) (Workflow, *WorkflowStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, ok := r.workflows[req.Job]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, req.Job)
	}
	if r.active != "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, r.active)
	}
	if v, ok := workflow.(RequestValidator); ok {
		if err := v.Validate(req); err != nil {
			return nil, nil, err
		}
	}

	status := &WorkflowStatus{
		RunID:     uuid.NewString(),
		Job:       req.Job,
		State:     StateRunning,
		StartedAt: time.Now(),
	}
	r.active = status.RunID
	r.statuses[status.RunID] = status
	r.order = append(r.order, status.RunID)
	for len(r.order) > maxStatuses {
		delete(r.statuses, r.order[0])
		r.order = r.order[1:]
	}
	return workflow, status, nil
}

func (r *WorkflowRunner) execute(ctx context.Context, workflow Workflow, status *WorkflowStatus, req pipeline.ProcessRequest) (*WorkflowResult, error) {
	logger := r.logger.With(logging.String(logging.FieldRunID, status.RunID))
	logger.Info("run started", logging.String("job", req.Job), logging.String("workflow", workflow.Name()))

	result, err := workflow.Execute(&WorkflowContext{
		Ctx:     ctx,
		Request: req,
		RunID:   status.RunID,
		Logger:  logger,
	})
	if result == nil {
		result = &WorkflowResult{Success: err == nil, Error: err}
	}

	r.mu.Lock()
	finished := time.Now()
	status.FinishedAt = &finished
	status.Result = result
	if result.Success {
		status.State = StateSucceeded
	} else {
		status.State = StateFailed
		if result.Error != nil {
			status.Error = result.Error.Error()
		} else if err != nil {
			status.Error = err.Error()
		}
	}
	r.active = ""
	r.mu.Unlock()

	logger.Info("run finished", logging.String("state", status.State), logging.Duration("elapsed", finished.Sub(status.StartedAt)))
	return result, err
}

// Run executes a workflow synchronously and returns its result
func (r *WorkflowRunner) Run(ctx context.Context, req pipeline.ProcessRequest) (string, *WorkflowResult, error) {
	workflow, status, err := r.start(req)
	if err != nil {
		return "", nil, err
	}
	result, err := r.execute(ctx, workflow, status, req)
	return status.RunID, result, err
}

// RunAsync claims the run slot and executes the workflow in the background.
// The returned id can be passed to GetStatus.
func (r *WorkflowRunner) RunAsync(ctx context.Context, req pipeline.ProcessRequest) (string, error) {
	workflow, status, err := r.start(req)
	if err != nil {
		return "", err
	}
	// The run outlives the request that started it.
	runCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.execute(runCtx, workflow, status, req)
	}()
	return status.RunID, nil
}

// GetStatus retrieves the status of a workflow execution
func (r *WorkflowRunner) GetStatus(ctx context.Context, runID string) (*WorkflowStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.statuses[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	copied := *status
	return &copied, nil
}

// Wait blocks until every background run has finished.
func (r *WorkflowRunner) Wait() {
	r.wg.Wait()
}
