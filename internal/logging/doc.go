// Package logging builds the slog loggers used across recast. It provides a
// compact console handler for interactive use, a JSON handler for log files,
// and attribute helpers so call sites stay terse.
package logging
