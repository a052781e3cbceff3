package logger

import (
	"log/slog"
	"os"
)

// Log is usable before Init so packages and tests never hit a nil logger.
var Log = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func Init(environment string) {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}
	// JSON handler for production-ready logging
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	Log = slog.New(handler).With("service", "cv-platform-backend", "env", environment)
}
