// Package abitest provides helpers for exercising guest handlers against an
// abi.Arena the way a host would: stage a request, call, read the frame, free it.
package abitest

import (
	"errors"
	"testing"

	"github.com/reglet-dev/reglet-abi/abi"
	"github.com/reglet-dev/reglet-abi/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DefaultArenaSize is large enough for any request the tests in this module stage.
const DefaultArenaSize = 64 * 1024

// NewArena returns a DefaultArenaSize arena.
func NewArena() *abi.Arena {
	return abi.NewArena(DefaultArenaSize)
}

// Stage allocates len(p) bytes in a and writes p there from the host side,
// returning the (ptr, length) pair a host would pass to a boundary call.
func Stage(t testing.TB, a *abi.Arena, p []byte) (ptr, length uint32) {
	t.Helper()
	length = uint32(len(p)) //nolint:gosec // G115: test payloads are small
	ptr = a.Allocate(length)
	require.True(t, a.Write(ptr, p), "staging %d bytes at %#x", len(p), ptr)
	return ptr, length
}

// RawFrame returns a copy of the whole frame at ptr, header included.
func RawFrame(t testing.TB, a *abi.Arena, ptr uint32) []byte {
	t.Helper()
	n, ok := a.ReadUint32Le(ptr)
	require.True(t, ok, "frame header at %#x out of bounds", ptr)
	view, ok := a.Read(ptr, n+wireformat.HeaderSize)
	require.True(t, ok, "frame at %#x out of bounds", ptr)
	return append([]byte(nil), view...)
}

// Payload reads the frame at ptr and frees it, as the host does after a call.
func Payload(t testing.TB, a *abi.Arena, ptr uint32) []byte {
	t.Helper()
	require.NotZero(t, ptr, "null frame address")
	payload, err := wireformat.ReadFrame(a, ptr)
	require.NoError(t, err)
	a.Free(ptr)
	return payload
}

// AssertNoLeaks fails the test if any allocation is still live.
func AssertNoLeaks(t testing.TB, a *abi.Arena) {
	t.Helper()
	s := a.Stats()
	assert.Zero(t, s.Live, "live allocations: %d (%d bytes)", s.Live, s.LiveBytes)
}

// AssertTrap asserts that fn panics with an *abi.Trap of the given kind.
func AssertTrap(t testing.TB, kind abi.TrapKind, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected %s trap", kind)
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		var trap *abi.Trap
		require.True(t, errors.As(err, &trap), "panic value %v is not a trap", r)
		assert.Equal(t, kind, trap.Kind)
	}()
	fn()
}
