package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Logging controls log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Encoder configures the ffmpeg-backed encoder service.
type Encoder struct {
	FFmpegPath string `toml:"ffmpeg_path"`
	// WorkDir is the scratch directory used as the encoder's virtual filesystem.
	WorkDir string `toml:"work_dir"`
	// FrameWorkers bounds parallel frame normalization.
	FrameWorkers int `toml:"frame_workers"`
}

// Session holds defaults for a new editing session.
type Session struct {
	DefaultFrameRate int    `toml:"default_frame_rate"`
	OutputDir        string `toml:"output_dir"`
}

// Server configures the local HTTP surface.
type Server struct {
	HTTPAddr string `toml:"http_addr"`
}

// Config is the full application configuration.
type Config struct {
	Logging Logging `toml:"logging"`
	Encoder Encoder `toml:"encoder"`
	Session Session `toml:"session"`
	Server  Server  `toml:"server"`
}

// Load builds a Config from defaults, the TOML file at path (if it exists) and
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		resolved, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(resolved)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Encoder.FFmpegPath = strings.TrimSpace(c.Encoder.FFmpegPath)

	var err error
	if c.Encoder.WorkDir, err = expandPath(c.Encoder.WorkDir); err != nil {
		return err
	}
	if c.Session.OutputDir, err = expandPath(c.Session.OutputDir); err != nil {
		return err
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", nil
	}
	if pathValue == "~" || strings.HasPrefix(pathValue, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		pathValue = filepath.Join(home, strings.TrimPrefix(pathValue, "~"))
	}
	return filepath.Clean(pathValue), nil
}
