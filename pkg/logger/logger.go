// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a string log level to slog.Level.
// Valid levels: debug, info, warn, error.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// Options controls logger construction.
type Options struct {
	Level   slog.Level
	File    string // empty = stderr
	Verbose bool   // include source position
}

// Setup builds a logger from the options and installs it as the slog default.
// Returns a closer for the log file when one was opened.
func Setup(opts Options) (io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = f
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.Verbose,
	})

	slog.SetDefault(slog.New(handler))
	return closer, nil
}
