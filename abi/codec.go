package abi

import (
	"math"
	"unicode/utf8"

	"github.com/reglet-dev/reglet-abi/wireformat"
)

// Codec decodes requests out of linear memory and encodes response frames into it.
type Codec struct {
	mem   Memory
	alloc Allocator
	cfg   codecConfig
}

type codecConfig struct {
	narrowStrings bool
}

// CodecOption configures a Codec.
type CodecOption func(*codecConfig)

// WithNarrowStrings makes EncodeString store one byte per rune, truncating each
// rune to its low 8 bits. This reproduces the legacy encoding some hosts still
// expect; it is lossy for anything outside Latin-1 and does not round-trip
// through DecodeString.
func WithNarrowStrings() CodecOption {
	return func(c *codecConfig) {
		c.narrowStrings = true
	}
}

// NewCodec creates a Codec over the given memory and allocator.
func NewCodec(mem Memory, alloc Allocator, opts ...CodecOption) *Codec {
	c := &Codec{mem: mem, alloc: alloc}
	for _, opt := range opts {
		opt(&c.cfg)
	}
	return c
}

// Memory returns the accessor the codec reads and writes through.
func (c *Codec) Memory() Memory { return c.mem }

// Allocator returns the allocator the codec allocates and frees through.
func (c *Codec) Allocator() Allocator { return c.alloc }

// NarrowStrings reports whether the legacy string encoding is enabled.
func (c *Codec) NarrowStrings() bool { return c.cfg.narrowStrings }

// DecodeBytes copies length bytes at ptr into a fresh owned buffer and frees
// the source region. ptr must not be used by the caller afterwards.
func (c *Codec) DecodeBytes(ptr, length uint32) *Buffer {
	buf := newBuffer(c.mem, c.alloc, length)
	for i := uint32(0); i < length; i++ {
		buf.store(i, c.mem.LoadByte(ptr+i))
	}
	c.alloc.Free(ptr)
	return buf
}

// DecodeString decodes the request at ptr as UTF-8 text. The source region and
// the intermediate buffer are released whether or not decoding succeeds.
func (c *Codec) DecodeString(ptr, length uint32) (string, error) {
	buf := c.DecodeBytes(ptr, length)
	defer buf.Release()

	p := buf.Bytes()
	if !utf8.Valid(p) {
		return "", &DecodeError{Err: ErrInvalidUTF8, Offset: firstInvalid(p), Length: length}
	}
	return string(p), nil
}

// Stage copies p into a fresh owned buffer.
func (c *Codec) Stage(p []byte) *Buffer {
	if uint64(len(p)) > math.MaxUint32-wireformat.HeaderSize {
		panic(&Trap{Kind: TrapExhausted, Size: math.MaxUint32})
	}
	buf := newBuffer(c.mem, c.alloc, uint32(len(p)))
	for i, v := range p {
		buf.store(uint32(i), v)
	}
	return buf
}

// EncodeBytes writes payload as a length-prefixed frame into a new allocation,
// releases payload, and returns the frame address.
func (c *Codec) EncodeBytes(payload *Buffer) uint32 {
	n := payload.Len()
	if n > math.MaxUint32-wireformat.HeaderSize {
		panic(&Trap{Kind: TrapExhausted, Size: n})
	}

	base := c.alloc.Allocate(n + wireformat.HeaderSize)

	var hdr [wireformat.HeaderSize]byte
	wireformat.PutHeader(hdr[:], n)
	for i, v := range hdr {
		c.mem.StoreByte(base+uint32(i), v)
	}

	body := base + wireformat.HeaderSize
	for i := uint32(0); i < n; i++ {
		c.mem.StoreByte(body+i, payload.At(i))
	}

	payload.Release()
	return base
}

// EncodeString writes s as a frame and returns its address.
func (c *Codec) EncodeString(s string) uint32 {
	var p []byte
	if c.cfg.narrowStrings {
		p = narrow(s)
	} else {
		p = []byte(s)
	}
	return c.EncodeBytes(c.Stage(p))
}

func narrow(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}

func firstInvalid(p []byte) int {
	for i := 0; i < len(p); {
		r, size := utf8.DecodeRune(p[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(p)
}
