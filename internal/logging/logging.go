// Package logging bootstraps the global slog logger. Console output always
// goes to stdout; an optional file handler is added when configured, each
// with its own minimum level.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// FileConfig configures the optional file sink. A nil *FileConfig disables it.
type FileConfig struct {
	// Path is the log file to append to. Created if it doesn't exist.
	Path string

	// MinimumLevel is the lowest level written to the file.
	MinimumLevel slog.Level
}

// Setup configures the global slog logger. development controls whether
// development-style text output (rather than JSON) is used for stdout.
// Returns a cleanup func that closes the file handle, if any.
func Setup(development bool, file *FileConfig) (func(), error) {
	var consoleHandler slog.Handler
	if development {
		consoleHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		consoleHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	cleanup := func() {}

	handler := consoleHandler
	if file != nil {
		f, err := os.OpenFile(file.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return cleanup, fmt.Errorf("opening log file: %w", err)
		}
		fileHandler := slog.NewTextHandler(f, &slog.HandlerOptions{
			Level: file.MinimumLevel,
		})
		handler = fanOut{consoleHandler, fileHandler}
		cleanup = func() { _ = f.Close() }
	}

	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

// fanOut writes every record to all of its handlers. Used to drive the
// console and file sinks independently, each with its own level filter.
type fanOut []slog.Handler

func (f fanOut) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanOut) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f fanOut) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanOut, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanOut) WithGroup(name string) slog.Handler {
	next := make(fanOut, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
