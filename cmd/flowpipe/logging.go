package main

import (
	"io"
	"log/slog"
	"os"
)

// setupLogger builds the process logger. Unknown levels fall back to info;
// any format other than "json" logs text. Debug output carries source lines.
func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl <= slog.LevelDebug}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if format == "json" || format == "JSON" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", appName, "version", Version, "pid", os.Getpid())
}
