// Package logging builds the application logger: human-readable text on
// stderr, and a rotated log file in text or JSON.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Settings configures Setup.
type Settings struct {
	// Level is debug, info, warn or error.
	Level string

	// File is the log file. Empty logs to stderr only.
	File string

	// Format is "text" or "json" and applies to the file.
	Format string

	// Rotation limits, as understood by lumberjack.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(name)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

// Setup creates the logger. verbose forces debug output on stderr.
// The returned cleanup closes the log file.
func Setup(settings Settings, verbose bool, stderr io.Writer) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(settings.Level)
	if err != nil {
		return nil, nil, err
	}

	stderrLevel := level
	if verbose {
		stderrLevel = slog.LevelDebug
	}
	stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: stderrLevel})

	if settings.File == "" {
		return slog.New(stderrHandler), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(settings.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   settings.File,
		MaxSize:    settings.MaxSizeMB,
		MaxBackups: settings.MaxBackups,
		MaxAge:     settings.MaxAgeDays,
		LocalTime:  true,
	}

	logger := SetupWithWriters(stderrHandler, file, settings.Format, level)
	return logger, file.Close, nil
}

// SetupWithWriters fans out to an existing stderr handler and a file writer.
func SetupWithWriters(stderrHandler slog.Handler, file io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var fileHandler slog.Handler
	if strings.EqualFold(format, "json") {
		fileHandler = slog.NewJSONHandler(file, opts)
	} else {
		fileHandler = slog.NewTextHandler(file, opts)
	}

	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
}
