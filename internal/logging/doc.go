// Package logging assembles the structured slog loggers used by imgconv.
//
// It owns the console and JSON handlers, routes the console stream to stderr
// (stdout is reserved for command output), mirrors records into a JSON session
// log under log_dir, and exposes context-aware helpers so workflow code can
// tag lines with item IDs, stages, and correlation IDs. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
