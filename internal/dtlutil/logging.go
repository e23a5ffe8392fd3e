// Package dtlutil holds small pieces of ambient infrastructure shared
// across the DTL packages: slog setup and a debug dump helper.
package dtlutil

import (
	"log/slog"
	"os"
	"strings"
)

// InitSlog configures the default slog logger based on the LOG_LEVEL
// environment variable. Supported levels: debug, info, warn, error.
func InitSlog() {
	level := slog.LevelInfo
	if raw, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch strings.ToLower(raw) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
