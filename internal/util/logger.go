package util

import (
	"log/slog"
	"os"
)

type Logger = *slog.Logger

// NewLogger returns a text logger on stderr so that tables and
// recommendations printed to stdout stay clean.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
