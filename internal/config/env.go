package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names recognised by applyEnv.
const (
	EnvLogLevel     = "STOPMOTION_LOG_LEVEL"
	EnvLogFormat    = "STOPMOTION_LOG_FORMAT"
	EnvFFmpegPath   = "STOPMOTION_FFMPEG_PATH"
	EnvWorkDir      = "STOPMOTION_WORK_DIR"
	EnvFrameWorkers = "STOPMOTION_FRAME_WORKERS"
	EnvFrameRate    = "STOPMOTION_FRAME_RATE"
	EnvOutputDir    = "STOPMOTION_OUTPUT_DIR"
	EnvHTTPAddr     = "STOPMOTION_HTTP_ADDR"
)

func (c *Config) applyEnv() error {
	setString(&c.Logging.Level, EnvLogLevel)
	setString(&c.Logging.Format, EnvLogFormat)
	setString(&c.Encoder.FFmpegPath, EnvFFmpegPath)
	setString(&c.Encoder.WorkDir, EnvWorkDir)
	setString(&c.Session.OutputDir, EnvOutputDir)
	setString(&c.Server.HTTPAddr, EnvHTTPAddr)
	if err := setInt(&c.Encoder.FrameWorkers, EnvFrameWorkers); err != nil {
		return err
	}
	if err := setInt(&c.Session.DefaultFrameRate, EnvFrameRate); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, value)
	}
	*dst = parsed
	return nil
}
