package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Encoder.FFmpegPath == "" {
		return errors.New("encoder.ffmpeg_path must be set")
	}
	if c.Encoder.WorkDir == "" {
		return errors.New("encoder.work_dir must be set")
	}
	if c.Encoder.FrameWorkers <= 0 {
		return fmt.Errorf("encoder.frame_workers must be positive, got %d", c.Encoder.FrameWorkers)
	}
	if c.Session.DefaultFrameRate <= 0 {
		return fmt.Errorf("session.default_frame_rate must be positive, got %d", c.Session.DefaultFrameRate)
	}
	if c.Server.HTTPAddr == "" {
		return errors.New("server.http_addr must be set")
	}
	return nil
}
