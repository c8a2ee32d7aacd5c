// Package config loads stop-motion pipeline settings.
//
// Values start from Default, are overlaid by an optional TOML file, and are
// finally overridden by STOPMOTION_* environment variables. Commands load a
// .env file before calling Load so local overrides work without exporting
// variables by hand.
package config
