// Package logging assembles the slog loggers used by the stop-motion pipeline.
//
// Console output goes through tint and is colourised only when the destination
// is a terminal; JSON output uses the standard slog JSON handler with stable
// key names. The package also carries attribute helpers, field-name constants
// and a progress sampler so encode progress does not flood the log.
package logging
