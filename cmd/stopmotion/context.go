package main

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/stopmotion-pipeline/internal/config"
	"github.com/tendant/stopmotion-pipeline/internal/logging"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
	"github.com/tendant/stopmotion-pipeline/pkg/runner"
)

// newRunner is swapped in tests to inject a fake encoder.
var newRunner = runner.New

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		// A missing .env is fine.
		_ = godotenv.Load()

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: w,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func (c *commandContext) runnerConfig(logger *slog.Logger) runner.Config {
	cfg := c.config
	return runner.Config{
		FFmpegPath:       cfg.Encoder.FFmpegPath,
		WorkDir:          cfg.Encoder.WorkDir,
		FrameWorkers:     cfg.Encoder.FrameWorkers,
		DefaultFrameRate: cfg.Session.DefaultFrameRate,
		Logger:           logger,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// readImages loads files from disk in argument order. The media type comes
// from the extension, falling back to content sniffing.
func readImages(paths []string) ([]pipeline.Image, error) {
	images := make([]pipeline.Image, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		if i := strings.IndexByte(mimeType, ';'); i >= 0 {
			mimeType = mimeType[:i]
		}
		images = append(images, pipeline.Image{
			Filename: filepath.Base(path),
			MimeType: mimeType,
			Data:     data,
		})
	}
	return images, nil
}
