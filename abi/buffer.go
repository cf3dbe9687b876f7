package abi

// Buffer is an exclusively owned region of linear memory obtained from one
// Allocate call. Ownership moves by handing the *Buffer to the next stage;
// whoever holds it last calls Release.
//
// Release is guarded: only the first call reaches the allocator, so a
// deferred Release after an explicit one is safe. Every accessor panics with
// ErrUseAfterRelease once the buffer has been released.
type Buffer struct {
	mem      Memory
	alloc    Allocator
	ptr      uint32
	size     uint32
	released bool
}

func newBuffer(mem Memory, alloc Allocator, size uint32) *Buffer {
	return &Buffer{
		mem:   mem,
		alloc: alloc,
		ptr:   alloc.Allocate(size),
		size:  size,
	}
}

// Ptr returns the base address of the buffer.
func (b *Buffer) Ptr() uint32 {
	b.mustLive()
	return b.ptr
}

// Len returns the buffer size in bytes.
func (b *Buffer) Len() uint32 {
	b.mustLive()
	return b.size
}

// At loads the byte at offset i.
func (b *Buffer) At(i uint32) byte {
	b.mustLive()
	if i >= b.size {
		panic(&Trap{Kind: TrapOutOfBounds, Addr: b.ptr + i})
	}
	return b.mem.LoadByte(b.ptr + i)
}

// Bytes copies the buffer contents into a new Go slice.
func (b *Buffer) Bytes() []byte {
	b.mustLive()
	out := make([]byte, b.size)
	for i := uint32(0); i < b.size; i++ {
		out[i] = b.mem.LoadByte(b.ptr + i)
	}
	return out
}

// Release returns the region to the allocator. Calls after the first are no-ops.
func (b *Buffer) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	b.alloc.Free(b.ptr)
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool {
	return b.released
}

func (b *Buffer) store(i uint32, v byte) {
	b.mem.StoreByte(b.ptr+i, v)
}

func (b *Buffer) mustLive() {
	if b.released {
		panic(ErrUseAfterRelease)
	}
}
