package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/tendant/stopmotion-pipeline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "error"
	cfg.Encoder.WorkDir = filepath.Join(base, "vfs")
	cfg.Session.OutputDir = filepath.Join(base, "out")
	cfg.Server.HTTPAddr = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithFrameRate overrides the default frame rate.
func WithFrameRate(rate int) ConfigOption {
	return func(c *config.Config) {
		c.Session.DefaultFrameRate = rate
	}
}

// WriteConfig marshals cfg as TOML into a temp file and returns its path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
