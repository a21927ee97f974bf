package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Options configures a Handler.
type Options struct {
	Level slog.Leveler
	// Flatten replaces newlines with spaces and drops carriage returns so every record
	// occupies exactly one line.
	Flatten bool
}

// Handler writes records as `<timestamp>\t<LEVEL>\t<message>` followed by any attributes
// rendered as ` key=value`.
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   Options
	prefix string
	attrs  []slog.Attr
}

func NewHandler(w io.Writer, opts Options) *Handler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &Handler{mu: &sync.Mutex{}, w: w, opts: opts}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

var flattener = strings.NewReplacer("\r", "", "\n", " ")

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	if !r.Time.IsZero() {
		line.WriteString(r.Time.Format(time.RFC3339))
	}
	line.WriteByte('\t')
	line.WriteString(r.Level.String())
	line.WriteByte('\t')
	line.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&line, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&line, h.prefix, a)
		return true
	})

	out := line.String()
	if h.opts.Flatten {
		out = flattener.Replace(out)
	}
	out += "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, out)
	return err
}

func writeAttr(line *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, inner := range a.Value.Group() {
			writeAttr(line, key, inner)
		}
		return
	}
	line.WriteByte(' ')
	line.WriteString(key)
	line.WriteByte('=')
	line.WriteString(a.Value.String())
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if next.prefix == "" {
		next.prefix = name
	} else {
		next.prefix = next.prefix + "." + name
	}
	return &next
}
