package testsupport

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/tendant/stopmotion-pipeline/internal/encoder"
)

// FakeEncoder is an in-memory encoder.Service. The zero value is not
// usable; call NewFakeEncoder.
type FakeEncoder struct {
	mu    sync.Mutex
	files map[string][]byte
	ready bool

	// LoadErr is returned by Load while non-nil.
	LoadErr error
	// WriteErr is returned by WriteFile for the listed names.
	WriteErr map[string]error
	// DeleteErr is returned by DeleteFile for the listed names. The file is
	// still removed so cleanup assertions stay meaningful.
	DeleteErr map[string]error
	// RunErr is returned by Run after progress has been emitted.
	RunErr error
	// Progress is emitted in order during Run.
	Progress []float64
	// LogLines are emitted during Run.
	LogLines []string
	// AfterProgress, when set, runs after each emitted progress event.
	AfterProgress func(ratio float64)
	// Output is written to the last argument of Run.
	Output []byte
	// Gate, when set, blocks Run until it is closed.
	Gate chan struct{}
	// Started receives once per Run call before Gate is awaited.
	Started chan struct{}

	runs   [][]string
	writes []string
}

// NewFakeEncoder returns a loaded fake that produces a small output.
func NewFakeEncoder() *FakeEncoder {
	return &FakeEncoder{
		files:    make(map[string][]byte),
		ready:    true,
		Progress: []float64{0.5, 1},
		Output:   []byte("fake-mp4"),
	}
}

func (f *FakeEncoder) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return fmt.Errorf("%w: %v", encoder.ErrUnavailable, f.LoadErr)
	}
	f.ready = true
	return nil
}

// SetReady forces the readiness flag.
func (f *FakeEncoder) SetReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = ready
}

func (f *FakeEncoder) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *FakeEncoder) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := encoder.ValidateName(name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.WriteErr[name]; err != nil {
		return err
	}
	f.files[name] = append([]byte(nil), data...)
	f.writes = append(f.writes, name)
	return nil
}

func (f *FakeEncoder) Run(ctx context.Context, args []string, events encoder.Events) error {
	f.mu.Lock()
	f.runs = append(f.runs, append([]string(nil), args...))
	progress := append([]float64(nil), f.Progress...)
	lines := append([]string(nil), f.LogLines...)
	gate, started, after := f.Gate, f.Started, f.AfterProgress
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, line := range lines {
		if events.Log != nil {
			events.Log(line)
		}
	}
	for _, ratio := range progress {
		if events.Progress != nil {
			events.Progress(ratio)
		}
		if after != nil {
			after(ratio)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RunErr != nil {
		return f.RunErr
	}
	if out := encoder.OutputName(args); out != "" && f.Output != nil {
		f.files[out] = append([]byte(nil), f.Output...)
	}
	return nil
}

func (f *FakeEncoder) ReadFile(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, os.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (f *FakeEncoder) DeleteFile(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, name)
	return f.DeleteErr[name]
}

func (f *FakeEncoder) List() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *FakeEncoder) Close() error {
	f.SetReady(false)
	return nil
}

// File returns a stored file and whether it exists.
func (f *FakeEncoder) File(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	return data, ok
}

// Runs returns the argument vectors of every Run call.
func (f *FakeEncoder) Runs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.runs...)
}

// Writes returns the names written so far in call order.
func (f *FakeEncoder) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

var _ encoder.Service = (*FakeEncoder)(nil)
