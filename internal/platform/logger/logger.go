package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON output in production; set
// LINGKOD_LOG_FORMAT=text for local development.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LINGKOD_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if os.Getenv("LINGKOD_LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
