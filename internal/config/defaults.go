package config

const (
	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
	defaultFFmpegPath   = "ffmpeg"
	defaultWorkDir      = "~/.cache/stopmotion/vfs"
	defaultFrameWorkers = 4
	defaultFrameRate    = 10
	defaultOutputDir    = "."
	defaultHTTPAddr     = "127.0.0.1:8080"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Encoder: Encoder{
			FFmpegPath:   defaultFFmpegPath,
			WorkDir:      defaultWorkDir,
			FrameWorkers: defaultFrameWorkers,
		},
		Session: Session{
			DefaultFrameRate: defaultFrameRate,
			OutputDir:        defaultOutputDir,
		},
		Server: Server{
			HTTPAddr: defaultHTTPAddr,
		},
	}
}
