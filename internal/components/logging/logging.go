package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Fanout is a slog.Handler that hands every record to each of its handlers.
type Fanout []slog.Handler

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errlist []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		err := h.Handle(ctx, r.Clone())
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(Fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f Fanout) WithGroup(name string) slog.Handler {
	next := make(Fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}

// Setup installs the default slog logger, writing human readable lines to console and
// flattened lines appended to the file at logPath. The returned closer closes the file.
func Setup(console io.Writer, logPath string, level slog.Level) (io.Closer, error) {
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	handler := Fanout{
		NewHandler(console, Options{Level: level}),
		NewHandler(file, Options{Level: level, Flatten: true}),
	}
	slog.SetDefault(slog.New(handler))

	return file, nil
}
