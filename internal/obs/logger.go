package obs

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger returns a text logger at debug level for development and a JSON
// logger at info level everywhere else.
func NewLogger(env string, w io.Writer) *slog.Logger {
	if strings.EqualFold(env, "development") {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Discard is a logger for tests and tools that want no output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
