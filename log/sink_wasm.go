//go:build wasip1

package log

import "log/slog"

// Host log primitives. The host buffers bytes from write and delivers them on flush.
//
//go:wasmimport env write
func hostWrite(b int32)

//go:wasmimport env flush
func hostFlush()

// HostSink routes bytes to the host's env.write / env.flush imports.
type HostSink struct{}

// PutByte implements Sink.
func (HostSink) PutByte(b byte) {
	hostWrite(int32(b))
}

// Flush implements Sink.
func (HostSink) Flush() {
	hostFlush()
}

// DefaultSink returns the sink guest code logs to.
func DefaultSink() Sink {
	return HostSink{}
}

// init routes the default slog logger to the host.
func init() {
	slog.SetDefault(slog.New(NewHandler(HostSink{})))
}
