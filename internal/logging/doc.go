// Package logging assembles structured slog loggers used across clipmatch.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run and remote asset identifiers. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
