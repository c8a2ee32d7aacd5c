package runner

import (
	"github.com/tendant/stopmotion-pipeline/internal/session"
	"github.com/tendant/stopmotion-pipeline/internal/workflows"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
)

// EntryView converts a session entry to its wire form
func EntryView(e session.Entry) pipeline.Entry {
	return pipeline.Entry{
		ID:       e.ID,
		Filename: e.Image.Filename,
		MimeType: e.Image.MimeType,
		Size:     len(e.Image.Data),
		Preview:  e.Preview,
	}
}

// JobView converts an encode job to its wire form
func JobView(job workflows.Job) *pipeline.JobStatus {
	view := &pipeline.JobStatus{
		ID:        job.ID,
		Stage:     string(job.Stage),
		Progress:  job.Progress,
		FrameRate: job.FrameRate,
		Width:     job.Dimensions.Width,
		Height:    job.Dimensions.Height,
		Reason:    job.Reason,
	}
	if job.Artifact != nil {
		view.Artifact = &pipeline.ArtifactRef{
			Handle:   job.Artifact.Handle,
			Filename: job.Artifact.Filename,
			MimeType: job.Artifact.MimeType,
			Size:     job.Artifact.Size,
		}
	}
	return view
}

// RunView converts a workflow status to its wire form
func RunView(status *workflows.WorkflowStatus) pipeline.RunStatus {
	return pipeline.RunStatus{
		RunID:      status.RunID,
		Job:        status.Job,
		State:      status.State,
		StartedAt:  status.StartedAt,
		FinishedAt: status.FinishedAt,
		Error:      status.Error,
	}
}

// Snapshot returns the whole session state
func (r *Runner) Snapshot() pipeline.SessionState {
	entries := r.store.Entries()
	views := make([]pipeline.Entry, 0, len(entries))
	for _, e := range entries {
		views = append(views, EntryView(e))
	}

	rate := r.FrameRate()
	state, current := r.Preview()
	previewView := pipeline.PreviewState{
		Playing: state.Playing,
		Running: state.Running,
		Index:   state.Index,
		Length:  state.Length,
	}
	if current != nil {
		previewView.Current = current.ID
	}

	snapshot := pipeline.SessionState{
		Step:    r.Step().String(),
		Entries: views,
		FrameRate: pipeline.FrameRate{
			Text:      rate.Text,
			Valid:     rate.Valid,
			Confirmed: rate.Confirmed,
		},
		Preview:      previewView,
		Status:       r.Status(),
		EncoderReady: r.EncoderReady(),
	}
	if err := r.CanEncode(); err != nil {
		snapshot.EncodeBlocked = err.Error()
	} else {
		snapshot.CanEncode = true
	}
	if job, ok := r.Job(); ok {
		snapshot.Job = JobView(job)
	}
	return snapshot
}
