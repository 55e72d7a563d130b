package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalWithLogger(t *testing.T) {
	code := -1
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = osExit })

	var buf bytes.Buffer
	cleaned := false
	FatalWithLogger(slog.New(slog.NewJSONHandler(&buf, nil)), func() { cleaned = true },
		"Command failed", "command", "check")

	assert.Equal(t, 1, code)
	assert.True(t, cleaned)
	assert.Contains(t, buf.String(), `"msg":"Command failed"`)
	assert.Contains(t, buf.String(), `"command":"check"`)
}

func TestFatal_UsesDefaultLogger(t *testing.T) {
	code := -1
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = osExit })

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	Fatal("Failed to start", "error", "locked")
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), `"error":"locked"`)
}
