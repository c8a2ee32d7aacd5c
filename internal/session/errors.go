package session

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when an ingested file is not an accepted raster type
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrInvalidPermutation is returned when a reorder is not a permutation of the current sequence
	ErrInvalidPermutation = errors.New("invalid permutation")

	// ErrNotFound is returned when an identity is not in the sequence
	ErrNotFound = errors.New("image not found")
)

// UnsupportedFormatError names the file that caused a batch to be rejected
type UnsupportedFormatError struct {
	Filename string
	MimeType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("invalid file type: %s (%s); only JPG, JPEG and PNG are allowed", e.Filename, e.MimeType)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}
