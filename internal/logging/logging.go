// Package logging provides structured logging setup for fieldtrack.
package logging

import (
	"io"
	"log/slog"
)

// Setup initializes the default slog logger writing to w.
// Dev mode uses human-readable text at debug level; otherwise JSON at info.
func Setup(w io.Writer, devMode bool) {
	slog.SetDefault(slog.New(NewHandler(w, devMode)))
}

// NewHandler returns the handler Setup installs.
func NewHandler(w io.Writer, devMode bool) slog.Handler {
	if devMode {
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
}

// SetupCLI configures logging for interactive commands: warnings and errors
// as text, or everything at debug when verbose.
func SetupCLI(w io.Writer, verbose bool) {
	if verbose {
		Setup(w, true)
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
}
