package encoder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnavailable is returned when the encoder cannot be bootstrapped.
	ErrUnavailable = errors.New("encoder unavailable")

	// ErrNotLoaded is returned when an operation is attempted before Load.
	ErrNotLoaded = errors.New("encoder not loaded")

	// ErrInvalidName is returned for virtual file names that are not flat.
	ErrInvalidName = errors.New("invalid virtual file name")
)

// Events receives asynchronous notifications during Run. Either field may
// be nil. Calls are serialized.
type Events struct {
	Log      func(line string)
	Progress func(ratio float64)
}

func (e Events) log(line string) {
	if e.Log != nil {
		e.Log(line)
	}
}

func (e Events) progress(ratio float64) {
	if e.Progress != nil {
		e.Progress(ratio)
	}
}

// Service is the encoder contract consumed by the encode workflow.
type Service interface {
	// Load bootstraps the encoder. It is safe to call again after a failure.
	Load(ctx context.Context) error
	Ready() bool
	WriteFile(ctx context.Context, name string, data []byte) error
	// Run invokes the encoder once with args relative to the virtual filesystem.
	Run(ctx context.Context, args []string, events Events) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	// DeleteFile removes name. Deleting a missing file is not an error.
	DeleteFile(ctx context.Context, name string) error
	// List returns the names currently in the virtual filesystem, sorted.
	List() ([]string, error)
	Close() error
}

// ValidateName rejects names that would escape or nest inside the virtual
// filesystem.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), filepath.Base(name) != name:
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: hidden name %q", ErrInvalidName, name)
	}
	return nil
}
