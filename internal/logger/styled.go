package logger

import (
	"io"
	"log/slog"

	"github.com/thushan/tabkeeper/internal/util"
	"github.com/thushan/tabkeeper/theme"
)

// StyledLogger wraps slog.Logger with helpers that highlight tab titles,
// counts and numbers on a terminal
type StyledLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	InfoWithCount(msg string, count int, args ...any)
	InfoWithTab(msg string, tab string, args ...any)
	InfoWithNumbers(msg string, numbers ...int64)
	WarnWithTab(msg string, tab string, args ...any)
	ErrorWithTab(msg string, tab string, args ...any)

	// InfoConfigReset reports that corrupt tab settings were replaced
	InfoConfigReset(backupKey string)

	InfoWithContext(msg string, tab string, ctx LogContext)
	WarnWithContext(msg string, tab string, ctx LogContext)

	GetUnderlying() *slog.Logger
	With(args ...any) StyledLogger
	WithAttrs(attrs ...slog.Attr) StyledLogger
}

/**
 * LogContext provides a structured way to separate user-facing and detailed logging context.
 * The terminal gets the short message, the log file gets everything.
 */

// LogContext separates user-facing from detailed logging context
type LogContext struct {
	UserArgs     []interface{}
	DetailedArgs []interface{}
}

func NewWithTheme(cfg *Config) (*slog.Logger, StyledLogger, func(), error) {
	logger, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if !util.ShouldUseColors() {
		return logger, NewPlainStyledLogger(logger), cleanup, nil
	}

	appTheme := theme.GetTheme(cfg.Theme)
	return logger, NewPrettyStyledLogger(logger, appTheme), cleanup, nil
}

// NewDiscard returns a logger that drops everything, for tests and dry runs
func NewDiscard() StyledLogger {
	return NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func toInterfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}

// detailedArgs merges the user and detailed args for the file handler
func detailedArgs(tab string, ctx LogContext) []interface{} {
	allArgs := make([]interface{}, 0, len(ctx.UserArgs)+len(ctx.DetailedArgs)+2)
	allArgs = append(allArgs, "tab", tab)
	allArgs = append(allArgs, ctx.UserArgs...)
	allArgs = append(allArgs, ctx.DetailedArgs...)
	return allArgs
}
