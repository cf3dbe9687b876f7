//go:build wasip1

package abi

import "unsafe"

// Linear is the guest's own linear memory, addressed directly.
type Linear struct{}

// LoadByte implements Memory.
func (Linear) LoadByte(addr uint32) byte {
	//nolint:gosec // G103: linear memory offsets are the pointer values on wasm32
	return *(*byte)(unsafe.Pointer(uintptr(addr)))
}

// StoreByte implements Memory.
func (Linear) StoreByte(addr uint32, b byte) {
	//nolint:gosec // G103: linear memory offsets are the pointer values on wasm32
	*(*byte)(unsafe.Pointer(uintptr(addr))) = b
}
