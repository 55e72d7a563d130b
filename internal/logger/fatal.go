package logger

import (
	"log/slog"
	"os"
)

var osExit = os.Exit

// exit is swapped out by tests
var exit = osExit

// Fatal logs through the default logger and exits with status 1
func Fatal(msg string, args ...any) {
	FatalWithLogger(slog.Default(), nil, msg, args...)
}

// FatalWithLogger logs the failure, runs cleanup so the rotated log file is
// flushed, then exits with status 1
func FatalWithLogger(logger *slog.Logger, cleanup func(), msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(msg, args...)
	if cleanup != nil {
		cleanup()
	}
	exit(1)
}
