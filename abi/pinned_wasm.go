//go:build wasip1

package abi

import (
	"runtime"
	"sync"
	"unsafe"
)

// MaxTotalAllocations caps the bytes the guest keeps pinned at once.
const MaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// DefaultCollectThreshold is how many bytes the default allocator hands out
// between forced collections.
const DefaultCollectThreshold = 8 * 1024 * 1024

// Pinned is the guest allocator. Each allocation is a Go slice kept in a map so
// the GC cannot reclaim it while the host holds its address; Free drops the
// reference.
//
// The background GC rarely completes inside a reactor export, so freed
// regions pile up across calls. Collect forces a cycle once enough bytes have
// been handed out since the last one.
type Pinned struct {
	mu               sync.Mutex
	ptrs             map[uint32][]byte
	totalAllocated   int
	sinceCollect     int
	collectThreshold int
}

var pinned = &Pinned{
	ptrs:             make(map[uint32][]byte),
	collectThreshold: DefaultCollectThreshold,
}

// DefaultPinned returns the allocator behind the allocate/deallocate exports.
func DefaultPinned() *Pinned {
	return pinned
}

// Allocate implements Allocator. It traps when MaxTotalAllocations would be exceeded.
func (p *Pinned) Allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.totalAllocated+int(size) > MaxTotalAllocations {
		panic(&Trap{Kind: TrapLimitExceeded, Size: size})
	}

	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))

	p.ptrs[ptr] = buf
	p.totalAllocated += int(size)
	p.sinceCollect += int(size)
	return ptr
}

// Free implements Allocator. Untracked pointers are ignored.
func (p *Pinned) Free(ptr uint32) {
	if ptr == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	buf, ok := p.ptrs[ptr]
	if !ok {
		return
	}
	delete(p.ptrs, ptr)
	p.totalAllocated -= len(buf)
	if p.totalAllocated < 0 {
		p.totalAllocated = 0
	}
}

// Stats returns the number of pinned allocations and their total size.
func (p *Pinned) Stats() (count, totalBytes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ptrs), p.totalAllocated
}

// SetCollectThreshold sets the bytes allocated between forced collections.
// Zero or less disables them.
func (p *Pinned) SetCollectThreshold(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collectThreshold = n
}

// Collect runs the garbage collector if the bytes allocated since the last
// forced cycle reached the threshold, and reports whether it did.
func (p *Pinned) Collect() bool {
	p.mu.Lock()
	due := p.collectThreshold > 0 && p.sinceCollect >= p.collectThreshold
	if due {
		p.sinceCollect = 0
	}
	p.mu.Unlock()

	if due {
		runtime.GC()
	}
	return due
}

// FreeAllTracked drops every pinned allocation. Used after a trapped call or on shutdown.
func (p *Pinned) FreeAllTracked() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.ptrs)
	p.totalAllocated = 0
}

// allocate lets the host reserve guest memory for a request.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	return pinned.Allocate(size)
}

// deallocate lets the host release a response frame once it has read it.
//
//go:wasmexport deallocate
func deallocate(ptr uint32) {
	pinned.Free(ptr)
}
