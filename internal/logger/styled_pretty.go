package logger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thushan/tabkeeper/theme"
)

// PrettyStyledLogger implements StyledLogger with pterm formatting
type PrettyStyledLogger struct {
	logger *slog.Logger
	Theme  *theme.Theme
}

func NewPrettyStyledLogger(logger *slog.Logger, theme *theme.Theme) *PrettyStyledLogger {
	return &PrettyStyledLogger{
		logger: logger,
		Theme:  theme,
	}
}

func (sl *PrettyStyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *PrettyStyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *PrettyStyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *PrettyStyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *PrettyStyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.Theme.Counts.Sprint("(", count, ")"))
	sl.logger.Info(styledMsg, args...)
}

func (sl *PrettyStyledLogger) InfoWithTab(msg string, tab string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.Theme.Tab.Sprint(tab))
	sl.logger.Info(styledMsg, args...)
}

func (sl *PrettyStyledLogger) InfoWithNumbers(msg string, numbers ...int64) {
	var formattedNums []string
	for _, num := range numbers {
		formattedNums = append(formattedNums, sl.Theme.Numbers.Sprint(num))
	}

	styledMsg := fmt.Sprintf(msg, toInterfaceSlice(formattedNums)...)
	sl.logger.Info(styledMsg)
}

func (sl *PrettyStyledLogger) WarnWithTab(msg string, tab string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.Theme.Stale.Sprint(tab))
	sl.logger.Warn(styledMsg, args...)
}

func (sl *PrettyStyledLogger) ErrorWithTab(msg string, tab string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.Theme.Error.Sprint(tab))
	sl.logger.Error(styledMsg, args...)
}

func (sl *PrettyStyledLogger) InfoConfigReset(backupKey string) {
	styledMsg := fmt.Sprintf("Tab settings were corrupt and have been reset, previous copy kept as %s",
		sl.Theme.Highlight.Sprint(backupKey))
	sl.logger.Warn(styledMsg)
}

func (sl *PrettyStyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

func (sl *PrettyStyledLogger) WithAttrs(attrs ...slog.Attr) StyledLogger {
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}

	return &PrettyStyledLogger{
		logger: sl.logger.With(args...),
		Theme:  sl.Theme,
	}
}

func (sl *PrettyStyledLogger) With(args ...any) StyledLogger {
	return &PrettyStyledLogger{
		logger: sl.logger.With(args...),
		Theme:  sl.Theme,
	}
}

func (sl *PrettyStyledLogger) InfoWithContext(msg string, tab string, ctx LogContext) {
	sl.logWithContext(LogLevelInfo, msg, tab, ctx)
}

func (sl *PrettyStyledLogger) WarnWithContext(msg string, tab string, ctx LogContext) {
	sl.logWithContext(LogLevelWarn, msg, tab, ctx)
}

// logWithContext keeps the terminal line short and sends the details to the file
func (sl *PrettyStyledLogger) logWithContext(level string, msg string, tab string, ctx LogContext) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.Theme.Tab.Sprint(tab))

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
