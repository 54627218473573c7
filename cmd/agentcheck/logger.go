package main

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jpalmerr/agentcheck/config"
)

// newLogger creates the CLI logger writing to out and, when cfg.File is set,
// to a size-rotated log file. The returned func closes the file.
func newLogger(out io.Writer, cfg config.LogConfig) (*slog.Logger, func() error) {
	closeFn := func() error { return nil }

	w := out
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		w = io.MultiWriter(out, rotator)
		closeFn = rotator.Close
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), closeFn
}
