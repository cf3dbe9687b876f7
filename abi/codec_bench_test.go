package abi_test

import (
	"testing"

	"github.com/reglet-dev/reglet-abi/abi"
)

// BenchmarkEncodeBytes measures framing a 256-byte response.
func BenchmarkEncodeBytes(b *testing.B) {
	a := abi.NewArena(1 << 20)
	c := abi.NewCodec(a, a)
	payload := make([]byte, 256)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Free(c.EncodeBytes(c.Stage(payload)))
	}
}

// BenchmarkDecodeString measures the request path of a string handler.
func BenchmarkDecodeString(b *testing.B) {
	a := abi.NewArena(1 << 20)
	c := abi.NewCodec(a, a)
	req := []byte("the quick brown fox jumps over the lazy dog")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptr := a.Allocate(uint32(len(req)))
		a.Write(ptr, req)
		if _, err := c.DecodeString(ptr, uint32(len(req))); err != nil {
			b.Fatal(err)
		}
	}
}
