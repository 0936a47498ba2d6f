package logger

import (
	"log/slog"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerLogRecordFormat(t *testing.T) {
	w, err := NewWorkerLog(t.TempDir(), "worker-0", slog.LevelDebug)
	require.NoError(t, err)
	defer w.Close()

	w.Logger().Info("lemma created", "id", 3)

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)

	line := strings.TrimRight(string(data), "\n")
	matched, err := regexp.MatchString(
		`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3} │ INFO     │ lemma created id=3$`, line)
	require.NoError(t, err)
	assert.True(t, matched, "unexpected line: %q", line)
}

func TestWorkerLogLevelFiltering(t *testing.T) {
	w, err := NewWorkerLog(t.TempDir(), "worker-0", slog.LevelWarn)
	require.NoError(t, err)
	defer w.Close()

	w.Logger().Debug("hidden")
	w.Logger().Info("hidden too")
	w.Logger().Warn("visible")

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestWorkerLogStreamInterleave(t *testing.T) {
	w, err := NewWorkerLog(t.TempDir(), "worker-1", slog.LevelInfo)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Stream().Write([]byte("partial fragment"))
	require.NoError(t, err)

	// The next record must start on a fresh line.
	w.Logger().Info("after stream")

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "partial fragment", lines[0])
	assert.Contains(t, lines[1], "│ INFO     │ after stream")
}

func TestWorkerLogStreamNewlineTracking(t *testing.T) {
	w, err := NewWorkerLog(t.TempDir(), "worker-2", slog.LevelInfo)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Stream().Write([]byte("complete line\n"))
	require.NoError(t, err)

	w.Logger().Info("next")

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\n\n")
}

func TestFileTimestamp(t *testing.T) {
	ts := fileTimestamp(time.Date(2025, 1, 2, 13, 4, 5, 123_000_000, time.UTC))
	assert.Equal(t, "20250102_130405_123", ts)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got, "level %q", tt.in)
	}
}
