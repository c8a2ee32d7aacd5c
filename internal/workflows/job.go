package workflows

import (
	"math"
	"time"

	"github.com/tendant/stopmotion-pipeline/internal/normalize"
)

// Stage is a position in the encode job lifecycle.
type Stage string

const (
	StageIdle                  Stage = "idle"
	StageDeterminingDimensions Stage = "determining_dimensions"
	StageWritingFrames         Stage = "writing_frames"
	StageEncoding              Stage = "encoding"
	StageReadingOutput         Stage = "reading_output"
	StageCleaningUp            Stage = "cleaning_up"
	StageDone                  Stage = "done"
	StageFailed                Stage = "failed"
)

// Terminal reports whether s ends a job.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Artifact is a published encode output.
type Artifact struct {
	Handle   string `json:"handle"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Job is a snapshot of one encode run.
type Job struct {
	ID         string               `json:"id"`
	Identities []string             `json:"identities"`
	FrameRate  int                  `json:"frame_rate"`
	Dimensions normalize.Dimensions `json:"dimensions"`
	Stage      Stage                `json:"stage"`
	Progress   float64              `json:"progress"`
	Artifact   *Artifact            `json:"artifact,omitempty"`
	Reason     string               `json:"reason,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at,omitzero"`
}

func (j *Job) clone() Job {
	out := *j
	out.Identities = append([]string(nil), j.Identities...)
	if j.Artifact != nil {
		artifact := *j.Artifact
		out.Artifact = &artifact
	}
	return out
}

// advanceProgress folds an encoder signal into the published ratio. NaN is
// ignored, values are clamped to [0,1] and the result never decreases.
func advanceProgress(current, signal float64) float64 {
	if math.IsNaN(signal) {
		return current
	}
	signal = math.Max(0, math.Min(1, signal))
	return math.Max(current, signal)
}
