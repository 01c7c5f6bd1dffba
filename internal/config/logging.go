package config

import (
	"io"
	"log/slog"
	"strings"
)

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// Diagnostics for the user go to stdout, so logs belong on stderr.
func (c Config) Logger(w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
