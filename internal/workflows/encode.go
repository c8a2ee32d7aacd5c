package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tendant/stopmotion-pipeline/internal/encoder"
	"github.com/tendant/stopmotion-pipeline/internal/logging"
	"github.com/tendant/stopmotion-pipeline/internal/metrics"
	"github.com/tendant/stopmotion-pipeline/internal/normalize"
	"github.com/tendant/stopmotion-pipeline/internal/storage"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
)

// FramePattern names frame files by zero-padded index so the encoder's
// sequence input enumerates them in order.
const FramePattern = "img%05d.png"

// Source resolves an entry identity to its image.
type Source interface {
	Source(id string) (pipeline.Image, error)
}

// EncodeArgs returns the encoder arguments for a run at rate writing output.
func EncodeArgs(rate int, output string) []string {
	return []string{
		"-framerate", strconv.Itoa(rate),
		"-i", FramePattern,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		"-crf", "28",
		output,
	}
}

// EncodeOption configures an EncodeWorkflow.
type EncodeOption func(*EncodeWorkflow)

// WithFrameWorkers bounds how many frames are normalized at once.
func WithFrameWorkers(n int) EncodeOption {
	return func(w *EncodeWorkflow) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithMetrics records job and frame metrics.
func WithMetrics(m *metrics.Metrics) EncodeOption {
	return func(w *EncodeWorkflow) { w.metrics = m }
}

// WithNormalizer overrides the frame normalizer.
func WithNormalizer(n *normalize.Normalizer) EncodeOption {
	return func(w *EncodeWorkflow) { w.normalizer = n }
}

// WithClock overrides the time source used for output names.
func WithClock(now func() time.Time) EncodeOption {
	return func(w *EncodeWorkflow) { w.now = now }
}

// EncodeWorkflow turns an ordered list of session entries into a video.
// It owns the published artifact handle.
type EncodeWorkflow struct {
	encoder    encoder.Service
	source     Source
	artifacts  *storage.BlobRegistry
	normalizer *normalize.Normalizer
	metrics    *metrics.Metrics
	workers    int
	now        func() time.Time

	mu       sync.Mutex
	job      *Job
	artifact *Artifact
	status   string
}

// NewEncodeWorkflow creates the encode workflow
func NewEncodeWorkflow(enc encoder.Service, source Source, artifacts *storage.BlobRegistry, opts ...EncodeOption) *EncodeWorkflow {
	w := &EncodeWorkflow{
		encoder:    enc,
		source:     source,
		artifacts:  artifacts,
		normalizer: normalize.New(),
		workers:    4,
		now:        time.Now,
		status:     "Ready",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the workflow name
func (w *EncodeWorkflow) Name() string {
	return "EncodeWorkflow"
}

// Validate checks the entry preconditions of an encode.
func (w *EncodeWorkflow) Validate(req pipeline.ProcessRequest) error {
	switch {
	case len(req.Identities) == 0:
		return fmt.Errorf("%w: no images in sequence", ErrNotReady)
	case req.FrameRate <= 0:
		return fmt.Errorf("%w: frame rate %d is not positive", ErrNotReady, req.FrameRate)
	case !w.encoder.Ready():
		return fmt.Errorf("%w: encoder is not loaded", ErrNotReady)
	}
	return nil
}

// Job returns a snapshot of the current or most recent job.
func (w *EncodeWorkflow) Job() (Job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.job == nil {
		return Job{Stage: StageIdle}, false
	}
	return w.job.clone(), true
}

// Artifact returns the most recently published output.
func (w *EncodeWorkflow) Artifact() (Artifact, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.artifact == nil {
		return Artifact{}, false
	}
	return *w.artifact, true
}

// Status returns the status line: the latest stage, error or encoder message.
func (w *EncodeWorkflow) Status() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// SetStatus replaces the status line.
func (w *EncodeWorkflow) SetStatus(status string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
}

// ReleaseArtifact revokes the published artifact handle.
func (w *EncodeWorkflow) ReleaseArtifact() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.artifact != nil {
		w.artifacts.Revoke(w.artifact.Handle)
		w.artifact = nil
	}
}

func (w *EncodeWorkflow) setStage(stage Stage, status string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.job.Stage = stage
	w.status = status
}

func (w *EncodeWorkflow) setProgress(signal float64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.job.Progress = advanceProgress(w.job.Progress, signal)
	return w.job.Progress
}

// Execute runs the encode job
func (w *EncodeWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	req := wctx.Request
	logger := wctx.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "encode")

	if err := w.Validate(req); err != nil {
		return &WorkflowResult{Success: false, Error: err}, err
	}

	started := w.now()
	w.mu.Lock()
	w.job = &Job{
		ID:         wctx.RunID,
		Identities: append([]string(nil), req.Identities...),
		FrameRate:  req.FrameRate,
		Stage:      StageDeterminingDimensions,
		StartedAt:  started,
	}
	w.status = "Determining frame size"
	w.mu.Unlock()

	logger.Info("starting encode",
		logging.Int("frames", len(req.Identities)),
		logging.Int(logging.FieldFrameRate, req.FrameRate),
	)

	output := fmt.Sprintf("output-%d.mp4", started.UnixMilli())
	artifact, err := w.encode(wctx.Ctx, logger, req, output, started)

	w.setStage(StageCleaningUp, "Cleaning up")
	w.cleanup(logger, len(req.Identities), output)

	w.mu.Lock()
	job := w.job
	job.FinishedAt = w.now()
	elapsed := job.FinishedAt.Sub(started)
	if err != nil {
		job.Stage = StageFailed
		job.Reason = err.Error()
		w.status = "Encoding failed: " + err.Error()
	} else {
		job.Stage = StageDone
		job.Artifact = &artifact
		w.status = "Done"
	}
	w.mu.Unlock()

	if err != nil {
		w.metrics.JobFinished(metrics.OutcomeFailed, elapsed)
		logger.Error("encode failed", logging.Error(err), logging.Duration("elapsed", elapsed))
		failed := fmt.Errorf("%w: %w", ErrJobFailed, err)
		return &WorkflowResult{Success: false, Error: failed}, failed
	}

	w.metrics.JobFinished(metrics.OutcomeDone, elapsed)
	logger.Info("encode completed",
		logging.String("artifact", artifact.Filename),
		logging.Duration("elapsed", elapsed),
	)
	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"handle":     artifact.Handle,
			"filename":   artifact.Filename,
			"mime_type":  artifact.MimeType,
			"size":       artifact.Size,
			"frame_rate": req.FrameRate,
			"frames":     len(req.Identities),
		},
	}, nil
}

func (w *EncodeWorkflow) encode(ctx context.Context, logger *slog.Logger, req pipeline.ProcessRequest, output string, started time.Time) (Artifact, error) {
	// Resolve every source up front so later session edits cannot change
	// the frames of a running job.
	images := make([]pipeline.Image, len(req.Identities))
	for i, id := range req.Identities {
		img, err := w.source.Source(id)
		if err != nil {
			return Artifact{}, fmt.Errorf("resolve frame %d: %w", i, err)
		}
		images[i] = img
	}

	dims, err := normalize.TargetFor(images[0].Data)
	if err != nil {
		return Artifact{}, fmt.Errorf("first image %s: %w", images[0].Filename, err)
	}
	w.mu.Lock()
	w.job.Dimensions = dims
	w.mu.Unlock()
	logger.Info("frame size determined", logging.String("dimensions", dims.String()))

	w.setStage(StageWritingFrames, fmt.Sprintf("Writing %d frames", len(images)))
	if err := w.writeFrames(ctx, logger, images, dims); err != nil {
		return Artifact{}, err
	}

	w.setStage(StageEncoding, "Encoding video")
	sampler := logging.NewProgressSampler(10)
	args := EncodeArgs(req.FrameRate, output)
	err = w.encoder.Run(ctx, args, encoder.Events{
		Log: func(line string) {
			logger.Debug("encoder output", logging.String("line", line))
			w.SetStatus(line)
		},
		Progress: func(ratio float64) {
			progress := w.setProgress(ratio)
			w.metrics.SetProgress(progress)
			if sampler.ShouldLog(progress*100, string(StageEncoding)) {
				logger.Info("encode progress", logging.Float64(logging.FieldProgress, progress))
			}
		},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("encoder run: %w", err)
	}
	w.metrics.SetProgress(w.setProgress(1))

	w.setStage(StageReadingOutput, "Reading output")
	data, err := w.encoder.ReadFile(ctx, output)
	if err != nil {
		return Artifact{}, fmt.Errorf("read output: %w", err)
	}
	if len(data) == 0 {
		return Artifact{}, fmt.Errorf("read output: encoder produced an empty file")
	}
	logger.Info("output read",
		logging.String("file", output),
		logging.String("size_mb", fmt.Sprintf("%.2f", float64(len(data))/(1024*1024))),
	)

	artifact := Artifact{
		Filename: fmt.Sprintf("stop-motion-%d.mp4", started.UnixMilli()),
		MimeType: pipeline.MimeMP4,
		Size:     len(data),
	}
	artifact.Handle = w.artifacts.Create(artifact.Filename, artifact.MimeType, data)

	w.mu.Lock()
	previous := w.artifact
	w.artifact = &artifact
	w.mu.Unlock()
	if previous != nil {
		w.artifacts.Revoke(previous.Handle)
	}
	return artifact, nil
}

func (w *EncodeWorkflow) writeFrames(ctx context.Context, logger *slog.Logger, images []pipeline.Image, dims normalize.Dimensions) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for i, img := range images {
		g.Go(func() error {
			begin := time.Now()
			frame, err := w.normalizer.Normalize(img.Data, dims)
			if err != nil {
				return fmt.Errorf("frame %d (%s): %w", i, img.Filename, err)
			}
			w.metrics.FrameNormalized(time.Since(begin))
			name := encoder.FrameName(FramePattern, i)
			if err := w.encoder.WriteFile(gctx, name, frame); err != nil {
				return fmt.Errorf("frame %d (%s): %w", i, img.Filename, err)
			}
			logger.Debug("frame written",
				logging.String(logging.FieldFilename, name),
				logging.String("source", img.Filename),
			)
			return nil
		})
	}
	return g.Wait()
}

// cleanup removes every file the job could have produced. Failures are
// logged and never returned.
func (w *EncodeWorkflow) cleanup(logger *slog.Logger, frames int, output string) {
	ctx := context.Background()
	names := make([]string, 0, frames+1)
	for i := 0; i < frames; i++ {
		names = append(names, encoder.FrameName(FramePattern, i))
	}
	names = append(names, output)

	failed := 0
	for _, name := range names {
		if err := w.encoder.DeleteFile(ctx, name); err != nil {
			failed++
			logger.Warn("cleanup failed", logging.String(logging.FieldFilename, name), logging.Error(err))
		}
	}
	logger.Debug("cleanup finished", logging.Int("files", len(names)), logging.Int("failed", failed))
}
