package host

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/reglet-dev/reglet-abi/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// lineBuffer accumulates one guest log line up to limit bytes. Bytes past the
// limit are dropped and the line is marked truncated.
type lineBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *lineBuffer) writeByte(c byte) {
	if b.limit > 0 && b.buf.Len() >= b.limit {
		b.truncated = true
		return
	}
	b.buf.WriteByte(c)
}

func (b *lineBuffer) pending() bool {
	return b.buf.Len() > 0 || b.truncated
}

// take returns the buffered line and resets the buffer.
func (b *lineBuffer) take() (string, bool) {
	line, truncated := b.buf.String(), b.truncated
	b.buf.Reset()
	b.truncated = false
	return line, truncated
}

// guestLog turns the byte stream from env.write / env.flush into log entries,
// one buffer per guest module instance.
type guestLog struct {
	mu     sync.Mutex
	logger *zap.Logger
	limit  int
	lines  map[string]*lineBuffer
}

func newGuestLog(logger *zap.Logger, limit int) *guestLog {
	return &guestLog{
		logger: logger,
		limit:  limit,
		lines:  make(map[string]*lineBuffer),
	}
}

// write receives one byte from a guest. A newline completes the line.
func (g *guestLog) write(module string, c byte) {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := g.buffer(module)
	if c == '\n' {
		g.emit(module, buf)
		return
	}
	buf.writeByte(c)
}

// flush delivers a partial line, if any.
func (g *guestLog) flush(module string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if buf, ok := g.lines[module]; ok && buf.pending() {
		g.emit(module, buf)
	}
}

// drop flushes and forgets the buffer of a closed module.
func (g *guestLog) drop(module string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if buf, ok := g.lines[module]; ok {
		if buf.pending() {
			g.emit(module, buf)
		}
		delete(g.lines, module)
	}
}

func (g *guestLog) buffer(module string) *lineBuffer {
	buf, ok := g.lines[module]
	if !ok {
		buf = &lineBuffer{limit: g.limit}
		g.lines[module] = buf
	}
	return buf
}

func (g *guestLog) emit(module string, buf *lineBuffer) {
	line, truncated := buf.take()

	fields := []zap.Field{zap.String("plugin", module)}
	if truncated {
		fields = append(fields, zap.Bool("truncated", true))
	}

	// Lines from the guest slog handler carry their own level and attributes.
	if rec, ok := parseRecord(line); ok {
		for _, a := range rec.Attrs {
			fields = append(fields, zap.String(a.Key, a.Value))
		}
		if rec.Source != "" {
			fields = append(fields, zap.String("source", rec.Source))
		}
		g.logger.Log(zapLevel(rec.Level), rec.Message, fields...)
		return
	}

	g.logger.Info(line, fields...)
}

func parseRecord(line string) (log.LogMessageWire, bool) {
	var rec log.LogMessageWire
	if !strings.HasPrefix(line, "{") {
		return rec, false
	}
	if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Level == "" {
		return rec, false
	}
	return rec, true
}

// zapLevel maps a slog level name ("INFO", "WARN+2", ...) to a zap level.
func zapLevel(level string) zapcore.Level {
	switch {
	case strings.HasPrefix(level, "DEBUG"):
		return zapcore.DebugLevel
	case strings.HasPrefix(level, "WARN"):
		return zapcore.WarnLevel
	case strings.HasPrefix(level, "ERROR"):
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
