package logging

import (
	"io"
	"log/slog"
	"os"
)

// NewHandler returns the stdout handler: JSON in production, text at debug
// level everywhere else.
func NewHandler(env string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if env == "production" {
		return slog.NewJSONHandler(w, opts)
	}
	opts.Level = slog.LevelDebug
	return slog.NewTextHandler(w, opts)
}

// Setup installs the stdout handler as the default logger and returns it so
// it can later be combined with the database handler.
func Setup(env string) slog.Handler {
	handler := NewHandler(env, os.Stdout)
	slog.SetDefault(slog.New(handler))
	return handler
}
