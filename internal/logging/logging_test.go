package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ancestry.log")
	logger, cleanup, err := Setup(Config{Level: "info", FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	require.NoError(t, err)

	logger.Debug("hidden_event")
	logger.Info("ancestry_traversal_truncated", slog.String("start", "D"), slog.Int("ancestors", 2))
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "ancestry_traversal_truncated", record["msg"])
	assert.Equal(t, "D", record["start"])
	assert.Equal(t, float64(2), record["ancestors"])
}

func TestSetup_NoOutputs(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "debug"})
	require.NoError(t, err)
	defer cleanup()
	logger.Info("discarded")
}

func TestServerConfig_NeverWritesToStderr(t *testing.T) {
	cfg := ServerConfig("warn")
	assert.False(t, cfg.WriteToStderr)
	assert.Equal(t, "warn", cfg.Level)
	assert.NotEmpty(t, cfg.FilePath)
	assert.False(t, cfg.SyncEveryWrite)
	assert.True(t, DebugConfig().SyncEveryWrite)
}

func TestDefaultLogPath_UsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".ancestry", "logs", "ancestry.log"), DefaultLogPath())

	_, err := FindLogFile("")
	assert.Error(t, err)

	require.NoError(t, os.MkdirAll(DefaultLogDir(), 0o755))
	require.NoError(t, os.WriteFile(DefaultLogPath(), nil, 0o644))
	found, err := FindLogFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLogPath(), found)

	_, err = FindLogFile(filepath.Join(home, "nope.log"))
	assert.Error(t, err)
}

func TestRotatingWriter_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ancestry.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	w.maxSize = 10
	w.SetImmediateSync(false)

	for _, line := range []string{"first-line\n", "second-line\n", "third-line\n", "fourth-line\n"} {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fourth-line\n", string(current))

	one, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, "third-line\n", string(one))

	two, err := os.ReadFile(path + ".2")
	require.NoError(t, err)
	assert.Equal(t, "second-line\n", string(two))

	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err), "only maxFiles rotated files are kept")
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ancestry.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	w, err := NewRotatingWriter(path, 0, 0)
	require.NoError(t, err)
	_, err = w.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(data))
}
