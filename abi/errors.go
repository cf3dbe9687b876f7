package abi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidUTF8 is returned when a string request is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("abi: invalid UTF-8 in request")

	// ErrUseAfterRelease is the panic value for reads through a released Buffer.
	ErrUseAfterRelease = errors.New("abi: buffer used after release")
)

// DecodeError describes a request that could not be decoded.
type DecodeError struct {
	Err    error
	Offset int // byte offset of the first invalid sequence
	Length uint32
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("abi: decode %d-byte request failed at offset %d: %v", e.Length, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TrapKind classifies a fatal memory fault.
type TrapKind uint8

const (
	TrapOutOfBounds TrapKind = iota + 1
	TrapUseAfterFree
	TrapDoubleFree
	TrapInvalidFree
	TrapExhausted
	TrapLimitExceeded
)

func (k TrapKind) String() string {
	switch k {
	case TrapOutOfBounds:
		return "out of bounds"
	case TrapUseAfterFree:
		return "use after free"
	case TrapDoubleFree:
		return "double free"
	case TrapInvalidFree:
		return "invalid free"
	case TrapExhausted:
		return "memory exhausted"
	case TrapLimitExceeded:
		return "allocation limit exceeded"
	default:
		return fmt.Sprintf("trap(%d)", uint8(k))
	}
}

// Trap is the panic value raised for bounds and allocation faults. On wasm the
// runtime aborts the boundary call; off-wasm the same condition panics with a
// *Trap so tests can assert on it.
type Trap struct {
	Kind TrapKind
	Addr uint32
	Size uint32
}

func (t *Trap) Error() string {
	if t.Size != 0 {
		return fmt.Sprintf("abi: trap: %s (addr=%#x size=%d)", t.Kind, t.Addr, t.Size)
	}
	return fmt.Sprintf("abi: trap: %s (addr=%#x)", t.Kind, t.Addr)
}

// Is lets errors.Is match traps by kind.
func (t *Trap) Is(target error) bool {
	other, ok := target.(*Trap)
	return ok && other.Kind == t.Kind
}
