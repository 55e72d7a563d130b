package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceAttr(t *testing.T) {
	tests := []struct {
		name string
		in   slog.Attr
		want string
	}{
		{"ansi stripped", slog.String("msg", "\x1b[36mAll Games\x1b[0m"), "All Games"},
		{"duration rounded", slog.Duration("window", 1500*time.Nanosecond+time.Millisecond), "1.002ms"},
		{"id list joined", slog.Any("tabs", []string{"t1", "t2"}), "t1,t2"},
		{"error", slog.Any("error", errors.New("disk full")), "disk full"},
		{"other values", slog.Any("positions", []int{0, 1}), "[0 1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := replaceAttr(nil, tt.in)
			assert.Equal(t, tt.in.Key, got.Key)
			assert.Equal(t, tt.want, got.Value.String())
		})
	}

	ts := replaceAttr(nil, slog.Time(slog.TimeKey, time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)))
	assert.Equal(t, "timestamp", ts.Key)
	assert.Equal(t, "2024-03-09 14:05:00", ts.Value.String())

	untouched := slog.Int("position", 3)
	assert.Equal(t, untouched, replaceAttr(nil, untouched))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))
}

func TestMultiHandler_DetailedSkipsTerminal(t *testing.T) {
	var term, file bytes.Buffer
	h := &fastMultiHandler{
		terminalHandler: slog.NewJSONHandler(&term, nil),
		fileHandler:     slog.NewJSONHandler(&file, nil),
	}
	log := slog.New(h).With("tab_id", "t1")

	log.InfoContext(context.Background(), "rebuilt")
	log.InfoContext(context.WithValue(context.Background(), DefaultDetailedCookie, true), "filter detail")

	assert.Contains(t, term.String(), "rebuilt")
	assert.NotContains(t, term.String(), "filter detail")
	require.Contains(t, file.String(), "filter detail")
	assert.Contains(t, file.String(), `"tab_id":"t1"`)
}
