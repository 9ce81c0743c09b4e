package app

import (
	"io"
	"log/slog"
)

// newLogger builds the logger pipeline assembly and runs write through. It
// never touches the process-wide default, so loading a definition as a
// library leaves the host program's logging alone.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// parseLevel maps a config level string to its slog level. Unknown strings
// are rejected earlier by config validation; info is the safe fallback.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
