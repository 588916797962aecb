// Package logging assembles the structured slog loggers used by hlsingest.
//
// It owns the console and JSON handlers, tees output to stdout and a daily
// log file under log_dir, and exposes context-aware helpers so pipeline code
// tags every line with the item identity, stage, and run id. A no-op logger
// is provided for tests and wiring code that cannot fail.
package logging
