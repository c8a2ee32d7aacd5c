package pipeline

import "strings"

// Image is one source image handed to the pipeline at ingestion
type Image struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// ProcessRequest represents a request to encode the current sequence
type ProcessRequest struct {
	Job        string            `json:"job"` // encode
	Identities []string          `json:"identities"`
	FrameRate  int               `json:"frame_rate"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ProcessResponse represents the response from triggering processing
type ProcessResponse struct {
	RunID string `json:"run_id"`
}

// JobType constants
const (
	JobEncode = "encode"
)

// Media type constants
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeMP4  = "video/mp4"

	// mimeJPGAlias is what some pickers report for .jpg files
	mimeJPGAlias = "image/jpg"
)

// NormalizeMimeType folds known aliases onto their canonical media type.
func NormalizeMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == mimeJPGAlias {
		return MimeJPEG
	}
	return mimeType
}

// IsAcceptedImageType reports whether mimeType is an accepted raster type.
func IsAcceptedImageType(mimeType string) bool {
	switch NormalizeMimeType(mimeType) {
	case MimeJPEG, MimePNG:
		return true
	default:
		return false
	}
}
