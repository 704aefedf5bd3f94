package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetupWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	stderrHandler := slog.NewTextHandler(&stderr, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := SetupWithWriters(stderrHandler, &file, "json", slog.LevelInfo)
	logger.Info("converted", "rows", 12)
	logger.Debug("hidden")

	assert.Contains(t, stderr.String(), "msg=converted rows=12")
	assert.Contains(t, file.String(), `"msg":"converted","rows":12`)
	assert.NotContains(t, file.String(), "hidden")
}

func TestSetupStderrOnly(t *testing.T) {
	var stderr bytes.Buffer

	logger, cleanup, err := Setup(Settings{Level: "warn"}, true, &stderr)
	require.NoError(t, err)
	defer cleanup()

	logger.Debug("verbose wins")
	assert.Contains(t, stderr.String(), "verbose wins")
}

func TestSetupWithFile(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "converter.log")

	logger, cleanup, err := Setup(Settings{Level: "info", File: path, Format: "text", MaxSizeMB: 1}, false, &stderr)
	require.NoError(t, err)

	logger.Info("written to both")
	require.NoError(t, cleanup())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "written to both")
	assert.Contains(t, stderr.String(), "written to both")

	_, _, err = Setup(Settings{Level: "nope"}, false, &stderr)
	assert.Error(t, err)
}
