package logging

import (
	"log/slog"
	"os"
)

// Logger is a thin wrapper around slog so packages can depend on a small
// logging interface instead of the global default.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger writing structured text to stdout. The level
// is taken from the LOG_LEVEL environment variable (DEBUG, INFO, WARN, ERROR).
func NewLogger() *Logger {
	opts := &slog.HandlerOptions{Level: logLevel()}
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, opts)),
	}
}

func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
