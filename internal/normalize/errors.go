package normalize

import "errors"

var (
	// ErrDecode is returned when source bytes are not a decodable JPEG or PNG.
	ErrDecode = errors.New("image decode failed")

	// ErrEncode is returned when the rendered frame cannot be serialized.
	ErrEncode = errors.New("frame encode failed")

	// ErrInvalidDimensions is returned when a target or source size has no area.
	ErrInvalidDimensions = errors.New("invalid frame dimensions")
)
