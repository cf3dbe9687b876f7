package abi_test

import (
	"testing"

	"github.com/reglet-dev/reglet-abi/abi"
	"github.com/reglet-dev/reglet-abi/abi/abitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_AllocateFree(t *testing.T) {
	a := abi.NewArena(1024)

	ptr := a.Allocate(100)
	require.NotZero(t, ptr, "allocate returned null")
	assert.Zero(t, ptr%8, "allocations are 8-byte aligned")
	assert.True(t, a.IsLive(ptr))

	a.StoreByte(ptr, 0x42)
	a.StoreByte(ptr+99, 0x43)
	assert.Equal(t, byte(0x42), a.LoadByte(ptr))
	assert.Equal(t, byte(0x43), a.LoadByte(ptr+99))

	s := a.Stats()
	assert.Equal(t, abi.ArenaStats{Allocs: 1, Live: 1, LiveBytes: 100}, s)

	a.Free(ptr)
	assert.False(t, a.IsLive(ptr))
	assert.Equal(t, abi.ArenaStats{Allocs: 1, Frees: 1}, a.Stats())
}

func TestArena_ZeroSize(t *testing.T) {
	a := abi.NewArena(64)
	assert.Zero(t, a.Allocate(0), "allocate(0) should return 0")
	assert.NotPanics(t, func() { a.Free(0) }, "free(0) is a no-op")
	assert.Zero(t, a.Live())
}

func TestArena_FreshAllocationsAreZeroed(t *testing.T) {
	a := abi.NewArena(64)
	p := a.Allocate(8)
	a.StoreByte(p, 0xFF)
	a.Free(p)

	// Fill the arena so the freed block has to be reused.
	var q uint32
	for q != p {
		q = a.Allocate(8)
	}
	assert.Equal(t, byte(0), a.LoadByte(q))
}

func TestArena_PoisonsFreedRegion(t *testing.T) {
	a := abi.NewArena(64)
	p := a.Allocate(4)
	a.Free(p)

	view, ok := a.Read(p, 4)
	require.True(t, ok)
	assert.Equal(t, []byte{abi.PoisonByte, abi.PoisonByte, abi.PoisonByte, abi.PoisonByte}, view)
}

func TestArena_Traps(t *testing.T) {
	t.Run("use after free", func(t *testing.T) {
		a := abi.NewArena(64)
		p := a.Allocate(4)
		a.Free(p)
		abitest.AssertTrap(t, abi.TrapUseAfterFree, func() { a.LoadByte(p) })
		abitest.AssertTrap(t, abi.TrapUseAfterFree, func() { a.StoreByte(p+3, 1) })
	})

	t.Run("double free", func(t *testing.T) {
		a := abi.NewArena(64)
		p := a.Allocate(4)
		a.Free(p)
		abitest.AssertTrap(t, abi.TrapDoubleFree, func() { a.Free(p) })
	})

	t.Run("invalid free", func(t *testing.T) {
		a := abi.NewArena(64)
		p := a.Allocate(16)
		abitest.AssertTrap(t, abi.TrapInvalidFree, func() { a.Free(p + 8) })
	})

	t.Run("out of bounds", func(t *testing.T) {
		a := abi.NewArena(64)
		abitest.AssertTrap(t, abi.TrapOutOfBounds, func() { a.LoadByte(64) })
		abitest.AssertTrap(t, abi.TrapOutOfBounds, func() { a.LoadByte(0) })
	})

	t.Run("past the end of an allocation", func(t *testing.T) {
		a := abi.NewArena(64)
		p := a.Allocate(3)
		abitest.AssertTrap(t, abi.TrapOutOfBounds, func() { a.LoadByte(p + 3) })
	})

	t.Run("exhausted", func(t *testing.T) {
		a := abi.NewArena(64)
		abitest.AssertTrap(t, abi.TrapExhausted, func() { a.Allocate(64) })
	})
}

func TestArena_ReusesFreedSpaceWhenFull(t *testing.T) {
	a := abi.NewArena(64)
	first := a.Allocate(24)
	second := a.Allocate(24)
	require.NotEqual(t, first, second)

	a.Free(first)
	third := a.Allocate(24)
	assert.Equal(t, first, third, "the only gap left is the freed block")
	assert.Equal(t, 2, a.Live())
}

func TestArena_HostView(t *testing.T) {
	a := abi.NewArena(64)
	p := a.Allocate(8)

	require.True(t, a.Write(p, []byte{0x07, 0x00, 0x00, 0x00}))
	n, ok := a.ReadUint32Le(p)
	require.True(t, ok)
	assert.Equal(t, uint32(7), n)

	_, ok = a.Read(60, 8)
	assert.False(t, ok)
	assert.False(t, a.Write(62, []byte{1, 2, 3}))
	_, ok = a.ReadUint32Le(62)
	assert.False(t, ok)
}
