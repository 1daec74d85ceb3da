// Package logging configures the process-wide structured logger.
//
// In daemon mode everything goes to an append-only info.log inside the main
// folder; with --debug a colorized handler writes to stderr instead.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
)

// Setup builds the logger and installs it as the slog default.
// mainFolder may be empty, in which case logs always go to stderr.
func Setup(mainFolder string, debug bool) (*slog.Logger, error) {
	if debug || mainFolder == "" {
		logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.TimeOnly,
		}))
		slog.SetDefault(logger)
		return logger, nil
	}

	if err := os.MkdirAll(mainFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", mainFolder, err)
	}

	logPath := filepath.Join(mainFolder, "info.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger, nil
}
