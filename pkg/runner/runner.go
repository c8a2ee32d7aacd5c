// Package runner composes the session store, step machine, frame-rate
// validator, preview scheduler and encode workflow into one API for the
// CLI, the local HTTP surface and library users.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tendant/stopmotion-pipeline/internal/encoder"
	"github.com/tendant/stopmotion-pipeline/internal/framerate"
	"github.com/tendant/stopmotion-pipeline/internal/logging"
	"github.com/tendant/stopmotion-pipeline/internal/metrics"
	"github.com/tendant/stopmotion-pipeline/internal/preview"
	"github.com/tendant/stopmotion-pipeline/internal/session"
	"github.com/tendant/stopmotion-pipeline/internal/steps"
	"github.com/tendant/stopmotion-pipeline/internal/storage"
	"github.com/tendant/stopmotion-pipeline/internal/workflows"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
)

// ErrStepGated is returned when an action is not available in the current step
var ErrStepGated = errors.New("action not available in current step")

// Config holds the configuration for initializing the pipeline runner
type Config struct {
	// Encoder overrides the ffmpeg service built from FFmpegPath and WorkDir
	Encoder          encoder.Service
	FFmpegPath       string
	WorkDir          string
	FrameWorkers     int
	DefaultFrameRate int
	Logger           *slog.Logger
	// Registerer receives the pipeline metrics; nil keeps them unregistered
	Registerer prometheus.Registerer
}

// RateState describes the frame-rate field
type RateState struct {
	Text      string `json:"text"`
	Valid     bool   `json:"valid"`
	Confirmed int    `json:"confirmed"`
}

// Runner is one editing session
type Runner struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	blobs     *storage.BlobRegistry
	store     *session.Store
	steps     *steps.Machine
	cell      *framerate.Cell
	rate      *framerate.Validator
	preview   *preview.Scheduler
	encoder   encoder.Service
	encode    *workflows.EncodeWorkflow
	workflows *workflows.WorkflowRunner
}

// New creates a session. The encoder is not loaded until LoadEncoder.
func New(cfg Config) (*Runner, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	enc := cfg.Encoder
	if enc == nil {
		if cfg.WorkDir == "" {
			return nil, fmt.Errorf("work dir is required when no encoder is supplied")
		}
		enc = encoder.NewFFmpeg(cfg.WorkDir, encoder.WithBinary(cfg.FFmpegPath), encoder.WithLogger(logger))
	}

	m := metrics.New(cfg.Registerer)
	blobs := storage.NewBlobRegistry()
	store := session.NewStore(blobs, session.WithLogger(logger), session.WithMetrics(m))
	cell := framerate.NewCell(cfg.DefaultFrameRate)

	r := &Runner{
		logger:  logging.NewComponentLogger(logger, "session"),
		metrics: m,
		blobs:   blobs,
		store:   store,
		steps:   steps.New(),
		cell:    cell,
		rate:    framerate.NewValidator(cell),
		preview: preview.New(preview.WithLogger(logger)),
		encoder: enc,
	}
	r.preview.SetRate(cell.Get(), true)

	r.encode = workflows.NewEncodeWorkflow(enc, store, blobs,
		workflows.WithFrameWorkers(cfg.FrameWorkers),
		workflows.WithMetrics(m),
	)
	r.workflows = workflows.NewWorkflowRunner(logger)
	r.workflows.Register(pipeline.JobEncode, r.encode)

	r.steps.OnChange(func(from, to steps.Step) {
		r.logger.Info("step changed", logging.String("from", from.String()), logging.String("to", to.String()))
		if !r.steps.Allows(steps.ActionPreview) {
			r.preview.SetPlaying(false)
		}
	})
	return r, nil
}

func (r *Runner) gate(action steps.Action) error {
	if !r.steps.Allows(action) {
		return fmt.Errorf("%w: %s during %s", ErrStepGated, action, r.steps.Current())
	}
	return nil
}

// LoadEncoder bootstraps the encoder. It can be retried after a failure.
func (r *Runner) LoadEncoder(ctx context.Context) error {
	r.encode.SetStatus("Loading encoder")
	if err := r.encoder.Load(ctx); err != nil {
		r.encode.SetStatus("Encoder unavailable: " + err.Error())
		r.logger.Error("encoder load failed", logging.Error(err))
		return err
	}
	r.encode.SetStatus("Encoder ready")
	return nil
}

// EncoderReady reports whether the encoder is loaded
func (r *Runner) EncoderReady() bool {
	return r.encoder.Ready()
}

// Step returns the current workflow step
func (r *Runner) Step() steps.Step {
	return r.steps.Current()
}

// Upload ingests images. The whole batch is rejected on the first
// unsupported file. An upload that admits at least one image advances to
// arrange; an empty batch changes nothing.
func (r *Runner) Upload(images []pipeline.Image) ([]session.Entry, error) {
	if err := r.gate(steps.ActionAdd); err != nil {
		return nil, err
	}
	added, err := r.store.Add(images)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return added, nil
	}
	r.preview.SetLength(r.store.Len())
	r.steps.Ingested()
	return added, nil
}

// Remove deletes an entry. Unknown ids are ignored.
func (r *Runner) Remove(id string) error {
	if err := r.gate(steps.ActionRemove); err != nil {
		return err
	}
	r.store.Remove(id)
	r.preview.SetLength(r.store.Len())
	return nil
}

// Reorder replaces the sequence order with a permutation of current ids
func (r *Runner) Reorder(ids []string) error {
	if err := r.gate(steps.ActionReorder); err != nil {
		return err
	}
	if err := r.store.Reorder(ids); err != nil {
		return err
	}
	r.preview.SetLength(r.store.Len())
	return nil
}

// Entries returns the ordered sequence
func (r *Runner) Entries() []session.Entry {
	return r.store.Entries()
}

// Next advances from arrange to finalize
func (r *Runner) Next() (steps.Step, error) {
	return r.steps.Next(r.store.Len())
}

// Back moves one step back
func (r *Runner) Back() (steps.Step, error) {
	return r.steps.Back()
}

// SetFrameRateText submits frame-rate text. Invalid text is kept for
// display but never replaces the confirmed rate.
func (r *Runner) SetFrameRateText(text string) (RateState, error) {
	if err := r.gate(steps.ActionRate); err != nil {
		return r.FrameRate(), err
	}
	_, valid := r.rate.Input(text)
	r.preview.SetRate(r.cell.Get(), valid)
	return r.FrameRate(), nil
}

// FrameRate returns the frame-rate field state
func (r *Runner) FrameRate() RateState {
	return RateState{
		Text:      r.rate.Text(),
		Valid:     r.rate.Valid(),
		Confirmed: r.rate.Confirmed(),
	}
}

// TogglePreview starts or stops playback and returns the new play state
func (r *Runner) TogglePreview() (bool, error) {
	if err := r.gate(steps.ActionPreview); err != nil {
		return false, err
	}
	return r.preview.Toggle(), nil
}

// Preview returns the scheduler state and the entry currently displayed
func (r *Runner) Preview() (preview.State, *session.Entry) {
	state := r.preview.State()
	entry, ok := r.store.At(state.Index)
	if !ok {
		return state, nil
	}
	return state, &entry
}

// CanEncode returns nil when an encode could be started now
func (r *Runner) CanEncode() error {
	if err := r.gate(steps.ActionEncode); err != nil {
		return err
	}
	if !r.rate.Valid() {
		return fmt.Errorf("%w: frame rate %q is invalid", workflows.ErrNotReady, r.rate.Text())
	}
	if id, running := r.workflows.Active(); running {
		return fmt.Errorf("%w: %s", workflows.ErrAlreadyRunning, id)
	}
	return r.encode.Validate(r.request())
}

func (r *Runner) request() pipeline.ProcessRequest {
	return pipeline.ProcessRequest{
		Job:        pipeline.JobEncode,
		Identities: r.store.IDs(),
		FrameRate:  r.cell.Get(),
	}
}

func (r *Runner) preflight() error {
	if err := r.gate(steps.ActionEncode); err != nil {
		return err
	}
	if !r.rate.Valid() {
		return fmt.Errorf("%w: frame rate %q is invalid", workflows.ErrNotReady, r.rate.Text())
	}
	return nil
}

// Encode starts an encode of the current sequence in the background and
// returns its run id
func (r *Runner) Encode(ctx context.Context) (string, error) {
	if err := r.preflight(); err != nil {
		return "", err
	}
	runID, err := r.workflows.RunAsync(ctx, r.request())
	if err != nil {
		r.metrics.JobFinished(metrics.OutcomeRejected, 0)
		return "", err
	}
	return runID, nil
}

// EncodeSync runs an encode to completion and returns the final job
func (r *Runner) EncodeSync(ctx context.Context) (workflows.Job, error) {
	if err := r.preflight(); err != nil {
		return workflows.Job{}, err
	}
	_, _, err := r.workflows.Run(ctx, r.request())
	if errors.Is(err, workflows.ErrNotReady) || errors.Is(err, workflows.ErrAlreadyRunning) {
		r.metrics.JobFinished(metrics.OutcomeRejected, 0)
		return workflows.Job{}, err
	}
	job, _ := r.encode.Job()
	return job, err
}

// Job returns the current or most recent encode job
func (r *Runner) Job() (workflows.Job, bool) {
	return r.encode.Job()
}

// RunStatus returns the status of a run started by Encode
func (r *Runner) RunStatus(ctx context.Context, runID string) (*workflows.WorkflowStatus, error) {
	return r.workflows.GetStatus(ctx, runID)
}

// Status returns the status line
func (r *Runner) Status() string {
	return r.encode.Status()
}

// Artifact returns the most recent encode output
func (r *Runner) Artifact() (storage.Blob, bool) {
	artifact, ok := r.encode.Artifact()
	if !ok {
		return storage.Blob{}, false
	}
	return r.blobs.Open(artifact.Handle)
}

// Blob resolves a preview or artifact handle
func (r *Runner) Blob(handle string) (storage.Blob, bool) {
	return r.blobs.Open(handle)
}

// Wait blocks until background encodes finish
func (r *Runner) Wait() {
	r.workflows.Wait()
}

// Close waits for a running encode, releases every handle and the encoder
func (r *Runner) Close() error {
	r.preview.Close()
	r.rate.Close()
	r.workflows.Wait()
	r.store.Teardown()
	r.encode.ReleaseArtifact()
	return r.encoder.Close()
}
