package pipeline

import "time"

// Entry is the wire view of one image in the session sequence
type Entry struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
	Preview  string `json:"preview"`
}

// FrameRate is the wire view of the frame-rate field
type FrameRate struct {
	Text      string `json:"text"`
	Valid     bool   `json:"valid"`
	Confirmed int    `json:"confirmed"`
}

// PreviewState is the wire view of the live preview
type PreviewState struct {
	Playing bool   `json:"playing"`
	Running bool   `json:"running"`
	Index   int    `json:"index"`
	Length  int    `json:"length"`
	Current string `json:"current,omitempty"`
}

// ArtifactRef points at a downloadable encode output
type ArtifactRef struct {
	Handle   string `json:"handle"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// JobStatus is the wire view of an encode job
type JobStatus struct {
	ID        string       `json:"id"`
	Stage     string       `json:"stage"`
	Progress  float64      `json:"progress"`
	FrameRate int          `json:"frame_rate"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	Reason    string       `json:"reason,omitempty"`
	Artifact  *ArtifactRef `json:"artifact,omitempty"`
}

// SessionState is the full session snapshot served to the presentation layer
type SessionState struct {
	Step         string       `json:"step"`
	Entries      []Entry      `json:"entries"`
	FrameRate    FrameRate    `json:"frame_rate"`
	Preview      PreviewState `json:"preview"`
	Status       string       `json:"status"`
	EncoderReady bool         `json:"encoder_ready"`
	CanEncode    bool         `json:"can_encode"`
	// EncodeBlocked explains why CanEncode is false
	EncodeBlocked string     `json:"encode_blocked,omitempty"`
	Job           *JobStatus `json:"job,omitempty"`
}

// RunStatus is the wire view of a workflow run
type RunStatus struct {
	RunID      string     `json:"run_id"`
	Job        string     `json:"job"`
	State      string     `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ReorderRequest carries a permutation of the current identities
type ReorderRequest struct {
	Identities []string `json:"identities"`
}

// FrameRateRequest carries raw frame-rate text
type FrameRateRequest struct {
	Text string `json:"text"`
}

// StepResponse reports the step after a transition
type StepResponse struct {
	Step string `json:"step"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}
