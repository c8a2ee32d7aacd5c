package encoder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/tendant/stopmotion-pipeline/internal/logging"
	"github.com/tendant/stopmotion-pipeline/internal/storage"
)

var (
	commandContext = exec.CommandContext
	lookPath       = exec.LookPath
)

const (
	vfsDirName   = "vfs"
	lockFileName = "encoder.lock"
	// stderrTail is how many trailing stderr lines are kept for error reports.
	stderrTail = 8
	// maxStderrLine caps a single buffered stderr line.
	maxStderrLine = 1024 * 1024
)

// Option configures the ffmpeg service.
type Option func(*FFmpeg)

// WithBinary overrides the ffmpeg binary name or path.
func WithBinary(binary string) Option {
	return func(f *FFmpeg) {
		if binary != "" {
			f.binary = binary
		}
	}
}

// WithLogger sets the logger used for bootstrap and cleanup messages.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FFmpeg) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// FFmpeg implements Service by running the ffmpeg binary inside a locked
// scratch directory.
type FFmpeg struct {
	binary  string
	workDir string
	logger  *slog.Logger

	mu      sync.Mutex
	ready   bool
	path    string
	version string
	lock    *flock.Flock
	vfs     *storage.FilesystemStorage
}

// NewFFmpeg constructs an unloaded service rooted at workDir.
func NewFFmpeg(workDir string, opts ...Option) *FFmpeg {
	f := &FFmpeg{
		binary:  "ffmpeg",
		workDir: workDir,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "encoder")
	return f
}

// Load resolves the binary, acquires the work directory lock and clears any
// files left behind by an earlier process.
func (f *FFmpeg) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ready {
		return nil
	}

	f.logger.Info("loading encoder", logging.String("binary", f.binary))
	path, err := lookPath(f.binary)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out, err := commandContext(ctx, path, "-hide_banner", "-version").Output() //nolint:gosec
	if err != nil {
		return fmt.Errorf("%w: %s -version: %v", ErrUnavailable, path, err)
	}
	version, _, _ := strings.Cut(string(out), "\n")

	if err := os.MkdirAll(f.workDir, 0o755); err != nil {
		return fmt.Errorf("%w: create work dir: %v", ErrUnavailable, err)
	}
	lock := flock.New(filepath.Join(f.workDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: acquire lock: %v", ErrUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: work dir %s is in use by another process", ErrUnavailable, f.workDir)
	}

	vfs, err := storage.NewFilesystemStorage(filepath.Join(f.workDir, vfsDirName))
	if err != nil {
		_ = lock.Unlock()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	f.path = path
	f.version = strings.TrimSpace(version)
	f.lock = lock
	f.vfs = vfs
	f.ready = true
	f.purgeLocked(ctx)

	f.logger.Info("encoder ready",
		logging.String("path", f.path),
		logging.String("version", f.version),
		logging.String("work_dir", f.workDir),
	)
	return nil
}

func (f *FFmpeg) purgeLocked(ctx context.Context) {
	names, err := f.vfs.Glob("*")
	if err != nil {
		return
	}
	for _, name := range names {
		if err := f.vfs.Delete(ctx, name); err != nil {
			f.logger.Warn("failed to remove stale file", logging.String("file", name), logging.Error(err))
			continue
		}
		f.logger.Debug("removed stale file", logging.String("file", name))
	}
}

// Ready reports whether Load has succeeded and Close has not been called.
func (f *FFmpeg) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

// Version returns the first line of ffmpeg -version once loaded.
func (f *FFmpeg) Version() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

func (f *FFmpeg) fs() (*storage.FilesystemStorage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return nil, ErrNotLoaded
	}
	return f.vfs, nil
}

// WriteFile stores data under name in the virtual filesystem.
func (f *FFmpeg) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	vfs, err := f.fs()
	if err != nil {
		return err
	}
	if _, err := vfs.Put(ctx, name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ReadFile returns the content of name.
func (f *FFmpeg) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	vfs, err := f.fs()
	if err != nil {
		return nil, err
	}
	data, err := vfs.ReadFile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// DeleteFile removes name from the virtual filesystem.
func (f *FFmpeg) DeleteFile(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	vfs, err := f.fs()
	if err != nil {
		return err
	}
	return vfs.Delete(ctx, name)
}

// List returns the visible files in the virtual filesystem.
func (f *FFmpeg) List() ([]string, error) {
	vfs, err := f.fs()
	if err != nil {
		return nil, err
	}
	names, err := vfs.Glob("*")
	if err != nil {
		return nil, err
	}
	visible := names[:0]
	for _, name := range names {
		if !strings.HasPrefix(name, ".") {
			visible = append(visible, name)
		}
	}
	return visible, nil
}

// Run executes ffmpeg once inside the virtual filesystem. Progress is the
// ratio of encoded frames to files matching the -i pattern. Stderr lines are
// forwarded as log events.
func (f *FFmpeg) Run(ctx context.Context, args []string, events Events) error {
	vfs, err := f.fs()
	if err != nil {
		return err
	}
	f.mu.Lock()
	path := f.path
	f.mu.Unlock()

	total := 0
	if pattern := InputPattern(args); pattern != "" {
		matches, err := vfs.Glob(PatternGlob(pattern))
		if err == nil {
			total = len(matches)
		}
	}

	var emitMu sync.Mutex
	serialized := Events{
		Log: func(line string) {
			emitMu.Lock()
			defer emitMu.Unlock()
			events.log(line)
		},
		Progress: func(ratio float64) {
			emitMu.Lock()
			defer emitMu.Unlock()
			events.progress(ratio)
		},
	}

	full := append([]string{"-hide_banner", "-y", "-nostats", "-progress", "pipe:1"}, args...)
	cmd := commandContext(ctx, path, full...) //nolint:gosec
	cmd.Dir = vfs.BaseDir()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	f.logger.Debug("starting ffmpeg", logging.String("args", strings.Join(full, " ")), logging.Int("input_frames", total))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	var (
		wg   sync.WaitGroup
		tail []string
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStderrLine)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			tail = append(tail, line)
			if len(tail) > stderrTail {
				tail = tail[1:]
			}
			serialized.Log(line)
		}
		if err := scanner.Err(); err != nil {
			f.logger.Warn("ffmpeg stderr scan stopped", logging.Error(err))
		}
		// Keep the pipe drained so ffmpeg never blocks on a full stderr.
		_, _ = io.Copy(io.Discard, stderr)
	}()

	parser := &progressParser{total: total, emit: serialized.Progress}
	readErr := parser.consume(stdout)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if len(tail) > 0 {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, tail[len(tail)-1])
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	if readErr != nil {
		return fmt.Errorf("read ffmpeg progress: %w", readErr)
	}
	return nil
}

// Close releases the work directory lock. The service can be loaded again.
func (f *FFmpeg) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return nil
	}
	f.ready = false
	if err := f.lock.Unlock(); err != nil {
		return fmt.Errorf("release encoder lock: %w", err)
	}
	return nil
}

var _ Service = (*FFmpeg)(nil)
