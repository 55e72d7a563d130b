package logger

import (
	"context"
	"fmt"
	"log/slog"
)

// PlainStyledLogger implements StyledLogger without formatting
type PlainStyledLogger struct {
	logger *slog.Logger
}

func NewPlainStyledLogger(logger *slog.Logger) *PlainStyledLogger {
	return &PlainStyledLogger{
		logger: logger,
	}
}

func (sl *PlainStyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *PlainStyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *PlainStyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *PlainStyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *PlainStyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styledMsg := fmt.Sprintf("%s (%d)", msg, count)
	sl.logger.Info(styledMsg, args...)
}

func (sl *PlainStyledLogger) InfoWithTab(msg string, tab string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, tab)
	sl.logger.Info(styledMsg, args...)
}

func (sl *PlainStyledLogger) InfoWithNumbers(msg string, numbers ...int64) {
	var formattedNums []string
	for _, num := range numbers {
		formattedNums = append(formattedNums, fmt.Sprintf("%d", num))
	}

	styledMsg := fmt.Sprintf(msg, toInterfaceSlice(formattedNums)...)
	sl.logger.Info(styledMsg)
}

func (sl *PlainStyledLogger) WarnWithTab(msg string, tab string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, tab)
	sl.logger.Warn(styledMsg, args...)
}

func (sl *PlainStyledLogger) ErrorWithTab(msg string, tab string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, tab)
	sl.logger.Error(styledMsg, args...)
}

func (sl *PlainStyledLogger) InfoConfigReset(backupKey string) {
	sl.logger.Warn(fmt.Sprintf("Tab settings were corrupt and have been reset, previous copy kept as %s", backupKey))
}

func (sl *PlainStyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

func (sl *PlainStyledLogger) WithAttrs(attrs ...slog.Attr) StyledLogger {
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}

	return &PlainStyledLogger{
		logger: sl.logger.With(args...),
	}
}

func (sl *PlainStyledLogger) With(args ...any) StyledLogger {
	return &PlainStyledLogger{
		logger: sl.logger.With(args...),
	}
}

func (sl *PlainStyledLogger) InfoWithContext(msg string, tab string, ctx LogContext) {
	sl.logWithContext(LogLevelInfo, msg, tab, ctx)
}

func (sl *PlainStyledLogger) WarnWithContext(msg string, tab string, ctx LogContext) {
	sl.logWithContext(LogLevelWarn, msg, tab, ctx)
}

func (sl *PlainStyledLogger) logWithContext(level string, msg string, tab string, ctx LogContext) {
	styledMsg := fmt.Sprintf("%s %s", msg, tab)

	switch level {
	case LogLevelInfo:
		sl.logger.Info(styledMsg, ctx.UserArgs...)
	case LogLevelWarn:
		sl.logger.Warn(styledMsg, ctx.UserArgs...)
	}

	if len(ctx.DetailedArgs) == 0 {
		return
	}
	detailedCtx := context.WithValue(context.Background(), DefaultDetailedCookie, true)
	switch level {
	case LogLevelInfo:
		sl.logger.InfoContext(detailedCtx, msg, detailedArgs(tab, ctx)...)
	case LogLevelWarn:
		sl.logger.WarnContext(detailedCtx, msg, detailedArgs(tab, ctx)...)
	}
}
