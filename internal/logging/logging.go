// Package logging installs the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
)

// Setup makes a text or JSON handler writing to w the default logger.
func Setup(w io.Writer, format string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}
