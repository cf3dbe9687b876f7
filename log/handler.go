// Package log carries guest logging across the boundary: the byte-level Sink
// the host exposes, a line-oriented Logger, and an slog.Handler that sends
// each record as one JSON line through a Sink.
package log

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime"
	"strconv"
)

// Handler implements slog.Handler by writing LogMessageWire lines to a Sink.
type Handler struct {
	sink   Sink
	opts   handlerConfig
	attrs  []LogAttrWire
	prefix string
}

// HandlerOption configures the Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Level
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level are dropped on the guest side.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewHandler creates a Handler writing to sink.
func NewHandler(sink Sink, opts ...HandlerOption) *Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if sink == nil {
		sink = Discard
	}
	return &Handler{sink: sink, opts: cfg}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

// Handle encodes the record and writes it as one line.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	msg := LogMessageWire{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
		Attrs:     append([]LogAttrWire(nil), h.attrs...),
	}

	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		msg.Source = f.File + ":" + strconv.Itoa(f.Line)
	}

	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = append(msg.Attrs, h.qualify(toLogAttrWire(attr)))
		return true
	})

	data, err := json.Marshal(msg)
	if err != nil {
		// Fall back to the bare message so the record is not lost.
		Line(h.sink, record.Level.String()+" "+record.Message)
		return nil
	}
	Line(h.sink, string(data))
	return nil
}

// WithAttrs returns a Handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(toLogAttrWire(a)))
	}
	return next
}

// WithGroup returns a Handler that prefixes later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = h.prefix + name + "."
	return next
}

func (h *Handler) clone() *Handler {
	next := *h
	next.attrs = append([]LogAttrWire(nil), h.attrs...)
	return &next
}

func (h *Handler) qualify(w LogAttrWire) LogAttrWire {
	w.Key = h.prefix + w.Key
	return w
}
