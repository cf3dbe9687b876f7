// Package abi implements the guest side of the byte-payload calling convention:
// request decoding from (ptr, len), length-prefixed response frames, and the
// ownership rules that keep every linear-memory buffer freed exactly once.
package abi

// Memory is byte-level access to absolute linear-memory addresses.
// Out-of-bounds access traps; it is never reported as an error value.
type Memory interface {
	LoadByte(addr uint32) byte
	StoreByte(addr uint32, b byte)
}

// Allocator is the guest allocator contract consumed by the codec.
//
// Allocate returns a fresh caller-owned region. A zero size returns address 0.
// Exhaustion traps. Free(0) is a no-op; freeing any other address twice, or an
// address Allocate never returned, is undefined.
type Allocator interface {
	Allocate(size uint32) uint32
	Free(ptr uint32)
}
