package abi

import (
	"encoding/binary"
	"sort"
	"sync"
)

const (
	// arenaAlign is the alignment of every Arena allocation.
	arenaAlign = 8

	// arenaReserved keeps the first bytes unallocated so address 0 stays null.
	arenaReserved = arenaAlign

	// PoisonByte is written over every freed Arena byte.
	PoisonByte = 0xDD
)

const (
	byteUnallocated uint8 = iota
	byteLive
	byteFreed
)

type block struct {
	ptr  uint32
	size uint32
}

// ArenaStats is a snapshot of Arena accounting.
type ArenaStats struct {
	Allocs    int
	Frees     int
	Live      int
	LiveBytes int
}

// Arena is a flat simulated linear memory with its own allocator. It stands in
// for wasm memory off-wasm and in tests, and it is strict: any guest-side
// access to a byte that is not inside a live allocation traps, freed bytes are
// poisoned, and double or invalid frees trap instead of corrupting state.
//
// Freed addresses are only reused once the arena has no room left above the
// highest allocation, which keeps stale pointers pointing at poisoned memory
// for as long as possible.
type Arena struct {
	mu     sync.Mutex
	data   []byte
	state  []uint8
	live   []block // sorted by ptr
	freed  map[uint32]uint32
	top    uint32
	allocs int
	frees  int
}

// NewArena creates an Arena of size bytes.
func NewArena(size uint32) *Arena {
	return &Arena{
		data:  make([]byte, size),
		state: make([]uint8, size),
		freed: make(map[uint32]uint32),
		top:   arenaReserved,
	}
}

// Size returns the arena capacity in bytes.
func (a *Arena) Size() uint32 {
	return uint32(len(a.data))
}

// LoadByte implements Memory.
func (a *Arena) LoadByte(addr uint32) byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.check(addr)
	return a.data[addr]
}

// StoreByte implements Memory.
func (a *Arena) StoreByte(addr uint32, b byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.check(addr)
	a.data[addr] = b
}

func (a *Arena) check(addr uint32) {
	if int(addr) >= len(a.data) {
		panic(&Trap{Kind: TrapOutOfBounds, Addr: addr})
	}
	switch a.state[addr] {
	case byteLive:
	case byteFreed:
		panic(&Trap{Kind: TrapUseAfterFree, Addr: addr})
	default:
		panic(&Trap{Kind: TrapOutOfBounds, Addr: addr})
	}
}

// Allocate implements Allocator.
func (a *Arena) Allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ptr, ok := a.place(size)
	if !ok {
		panic(&Trap{Kind: TrapExhausted, Size: size})
	}

	i := sort.Search(len(a.live), func(i int) bool { return a.live[i].ptr > ptr })
	a.live = append(a.live, block{})
	copy(a.live[i+1:], a.live[i:])
	a.live[i] = block{ptr: ptr, size: size}

	for p := range a.freed {
		if p >= ptr && p < ptr+size {
			delete(a.freed, p)
		}
	}
	for j := ptr; j < ptr+size; j++ {
		a.state[j] = byteLive
		a.data[j] = 0
	}
	if end := alignUp(ptr + size); end > a.top {
		a.top = end
	}
	a.allocs++
	return ptr
}

func (a *Arena) place(size uint32) (uint32, bool) {
	limit := uint64(len(a.data))
	if uint64(a.top)+uint64(size) <= limit {
		return a.top, true
	}

	cursor := uint64(arenaReserved)
	for _, b := range a.live {
		if uint64(b.ptr) >= cursor+uint64(size) {
			return uint32(cursor), true
		}
		cursor = uint64(alignUp(b.ptr + b.size))
	}
	if cursor+uint64(size) <= limit {
		return uint32(cursor), true
	}
	return 0, false
}

// Free implements Allocator.
func (a *Arena) Free(ptr uint32) {
	if ptr == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	i := sort.Search(len(a.live), func(i int) bool { return a.live[i].ptr >= ptr })
	if i == len(a.live) || a.live[i].ptr != ptr {
		if size, ok := a.freed[ptr]; ok {
			panic(&Trap{Kind: TrapDoubleFree, Addr: ptr, Size: size})
		}
		panic(&Trap{Kind: TrapInvalidFree, Addr: ptr})
	}

	b := a.live[i]
	a.live = append(a.live[:i], a.live[i+1:]...)
	for j := b.ptr; j < b.ptr+b.size; j++ {
		a.state[j] = byteFreed
		a.data[j] = PoisonByte
	}
	a.freed[b.ptr] = b.size
	a.frees++
}

// IsLive reports whether ptr is the base of a live allocation.
func (a *Arena) IsLive(ptr uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := sort.Search(len(a.live), func(i int) bool { return a.live[i].ptr >= ptr })
	return i < len(a.live) && a.live[i].ptr == ptr
}

// Live returns the number of live allocations.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Stats returns allocation counters.
func (a *Arena) Stats() ArenaStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := ArenaStats{Allocs: a.allocs, Frees: a.frees, Live: len(a.live)}
	for _, b := range a.live {
		s.LiveBytes += int(b.size)
	}
	return s
}

// Read returns a view of byteCount bytes at offset, the way a host sees guest
// memory. It only checks bounds; ownership is a guest-side concern.
func (a *Arena) Read(offset, byteCount uint32) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if uint64(offset)+uint64(byteCount) > uint64(len(a.data)) {
		return nil, false
	}
	return a.data[offset : offset+byteCount : offset+byteCount], true
}

// Write copies v to offset from the host side.
func (a *Arena) Write(offset uint32, v []byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if uint64(offset)+uint64(len(v)) > uint64(len(a.data)) {
		return false
	}
	copy(a.data[offset:], v)
	return true
}

// ReadUint32Le reads a little-endian uint32 from the host side.
func (a *Arena) ReadUint32Le(offset uint32) (uint32, bool) {
	p, ok := a.Read(offset, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(p), true
}

func alignUp(v uint32) uint32 {
	return (v + arenaAlign - 1) &^ (arenaAlign - 1)
}
