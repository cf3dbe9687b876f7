//go:build !wasip1

package log

import (
	"bufio"
	"io"
	"os"
)

// WriterSink buffers bytes and delivers them to an io.Writer on Flush.
// Write errors are dropped, as the Sink contract has no error path.
type WriterSink struct {
	w *bufio.Writer
}

// NewWriterSink creates a WriterSink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: bufio.NewWriter(w)}
}

// PutByte implements Sink.
func (s *WriterSink) PutByte(b byte) {
	_ = s.w.WriteByte(b)
}

// Flush implements Sink.
func (s *WriterSink) Flush() {
	_ = s.w.Flush()
}

// DefaultSink returns the sink guest code logs to. Outside wasm it is stdout.
func DefaultSink() Sink {
	return NewWriterSink(os.Stdout)
}
