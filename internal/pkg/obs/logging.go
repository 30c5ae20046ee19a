// Package obs contains the logging and metrics plumbing shared by every component.
package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds a JSON structured logger writing to stdout at the given level
// ("debug", "info", "warn", "error"; unknown values fall back to info).
func NewLogger(level string) *slog.Logger {
	return newLoggerTo(os.Stdout, level)
}

// newLoggerTo is NewLogger with an explicit writer.
func newLoggerTo(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h).With("service", ServiceName)
}

// NopLogger discards everything. Used by tests and by constructors given a nil logger.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return NopLogger()
	}
	return l
}

// ParseLevel maps a textual level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
