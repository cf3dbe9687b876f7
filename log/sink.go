package log

import "fmt"

// Sink is a character-oriented output channel. PutByte emits one byte; Flush
// forces delivery of anything the sink buffers. Neither reports failure.
type Sink interface {
	PutByte(b byte)
	Flush()
}

// Line writes message followed by a newline to s one byte at a time, then
// flushes once.
func Line(s Sink, message string) {
	for i := 0; i < len(message); i++ {
		s.PutByte(message[i])
	}
	s.PutByte('\n')
	s.Flush()
}

// Logger writes whole lines to a Sink.
type Logger struct {
	sink Sink
}

// NewLogger creates a Logger over s. A nil sink discards everything.
func NewLogger(s Sink) *Logger {
	if s == nil {
		s = Discard
	}
	return &Logger{sink: s}
}

// Sink returns the underlying sink.
func (l *Logger) Sink() Sink {
	return l.sink
}

// Log writes message as one line.
func (l *Logger) Log(message string) {
	Line(l.sink, message)
}

// Logf formats and writes one line.
func (l *Logger) Logf(format string, args ...any) {
	Line(l.sink, fmt.Sprintf(format, args...))
}

type discard struct{}

func (discard) PutByte(byte) {}
func (discard) Flush()       {}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}
