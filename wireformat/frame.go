// Package wireformat defines the response frame exchanged across the guest
// boundary: a 4-byte little-endian payload length followed by the payload.
// The layout is part of the ABI contract and must stay bit-exact.
package wireformat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the size of the length prefix.
const HeaderSize = 4

// MaxPayloadSize is the largest payload the length prefix can describe.
const MaxPayloadSize = math.MaxUint32 - HeaderSize

var (
	// ErrShortFrame is returned when a frame is smaller than its header.
	ErrShortFrame = errors.New("wireformat: frame shorter than header")

	// ErrOutOfBounds is returned when a frame extends past the end of memory.
	ErrOutOfBounds = errors.New("wireformat: frame out of bounds")
)

// LengthMismatchError is returned when the prefix disagrees with the bytes present.
type LengthMismatchError struct {
	Declared uint32
	Actual   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("wireformat: header declares %d payload bytes, frame has %d", e.Declared, e.Actual)
}

// PutHeader writes n as a little-endian length prefix into dst[:HeaderSize].
func PutHeader(dst []byte, n uint32) {
	binary.LittleEndian.PutUint32(dst, n)
}

// AppendFrame appends the frame for payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload))) //nolint:gosec // G115: callers bound payloads by MaxPayloadSize
	return append(dst, payload...)
}

// ParseFrame returns the payload of a complete frame. The result aliases frame.
func ParseFrame(frame []byte) ([]byte, error) {
	if len(frame) < HeaderSize {
		return nil, ErrShortFrame
	}
	n := binary.LittleEndian.Uint32(frame)
	if uint64(len(frame)-HeaderSize) != uint64(n) {
		return nil, &LengthMismatchError{Declared: n, Actual: len(frame) - HeaderSize}
	}
	return frame[HeaderSize:], nil
}

// FrameMemory is a host view of guest memory. wazero's api.Memory satisfies it.
type FrameMemory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	ReadUint32Le(offset uint32) (uint32, bool)
}

// ReadFrame reads the frame at ptr and returns a copy of its payload.
func ReadFrame(mem FrameMemory, ptr uint32) ([]byte, error) {
	n, ok := mem.ReadUint32Le(ptr)
	if !ok {
		return nil, fmt.Errorf("%w: header at %#x", ErrOutOfBounds, ptr)
	}
	if n > MaxPayloadSize || uint64(ptr)+HeaderSize+uint64(n) > math.MaxUint32+1 {
		return nil, fmt.Errorf("%w: %d-byte payload at %#x", ErrOutOfBounds, n, ptr)
	}
	if n == 0 {
		return []byte{}, nil
	}
	view, ok := mem.Read(ptr+HeaderSize, n)
	if !ok {
		return nil, fmt.Errorf("%w: %d-byte payload at %#x", ErrOutOfBounds, n, ptr)
	}
	out := make([]byte, n)
	copy(out, view)
	return out, nil
}
