package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/reglet-dev/reglet-abi/abi"
	"github.com/reglet-dev/reglet-abi/handler"
)

// fakeGuest runs guest exports in-process over an abi.Arena, standing in for a
// compiled module. A panic inside an export surfaces as a call error, the way
// a wasm trap does.
type fakeGuest struct {
	name    string
	arena   *abi.Arena
	adapter *handler.Adapter
	mem     guestMemory
	exports map[string]func(ptr, length uint32) uint32
	closed  bool
}

// readOnlyMemory rejects every host write, as a guest memory that shrank
// under the host would.
type readOnlyMemory struct {
	*abi.Arena
}

func (readOnlyMemory) Write(uint32, []byte) bool { return false }

// guestSink feeds an adapter's log output into a guestLog, as env.write and
// env.flush do for a real module.
type guestSink struct {
	logs   *guestLog
	module string
}

func (s guestSink) PutByte(b byte) { s.logs.write(s.module, b) }
func (s guestSink) Flush()         { s.logs.flush(s.module) }

func newFakeGuest(name string, logs *guestLog) *fakeGuest {
	arena := abi.NewArena(64 * 1024)
	g := &fakeGuest{
		name:  name,
		arena: arena,
		mem:   arena,
		adapter: handler.NewAdapter(arena, arena,
			handler.WithSink(guestSink{logs: logs, module: name}),
		),
	}

	must := func(frame uint32, err error) uint32 {
		if err != nil {
			panic(err)
		}
		return frame
	}

	g.exports = map[string]func(ptr, length uint32) uint32{
		"echo_bytes": func(ptr, length uint32) uint32 {
			return must(g.adapter.HandleBytes(ptr, length, func(req []byte) ([]byte, error) {
				return req, nil
			}))
		},
		"echo_string": func(ptr, length uint32) uint32 {
			return must(g.adapter.HandleString(ptr, length, func(req string) (string, error) {
				return req, nil
			}))
		},
		"echo_logged": func(ptr, length uint32) uint32 {
			return must(g.adapter.HandleLoggedString(ptr, length, func(req string) (string, error) {
				if req == "ping" {
					return "pong", nil
				}
				return req, nil
			}))
		},
		"fail": func(ptr, length uint32) uint32 {
			return must(g.adapter.HandleBytes(ptr, length, func([]byte) ([]byte, error) {
				return nil, errors.New("business logic failed")
			}))
		},
		"bad_utf8": func(ptr, length uint32) uint32 {
			return must(g.adapter.HandleBytes(ptr, length, func([]byte) ([]byte, error) {
				return []byte{0xff, 0xfe}, nil
			}))
		},
		"null": func(ptr, _ uint32) uint32 {
			arena.Free(ptr)
			return 0
		},
		"out_of_bounds": func(ptr, _ uint32) uint32 {
			arena.Free(ptr)
			return arena.Size() - 2
		},
		"corrupt_frame": func(ptr, _ uint32) uint32 {
			arena.Free(ptr)
			frame := arena.Allocate(8)
			for i, b := range []byte{0xff, 0xff, 0xff, 0x00} {
				arena.StoreByte(frame+uint32(i), b)
			}
			return frame
		},
	}
	return g
}

func (g *fakeGuest) Name() string { return g.name }

func (g *fakeGuest) HasExport(name string) bool {
	_, ok := g.exports[name]
	return ok || name == exportAllocate || name == exportDeallocate
}

func (g *fakeGuest) Call(_ context.Context, name string, params ...uint64) (results []uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("wasm error: %v", r)
		}
	}()

	switch name {
	case exportAllocate:
		return []uint64{uint64(g.arena.Allocate(uint32(params[0])))}, nil
	case exportDeallocate:
		g.arena.Free(uint32(params[0]))
		return nil, nil
	}

	fn, ok := g.exports[name]
	if !ok {
		return nil, ErrExportNotFound
	}
	return []uint64{uint64(fn(uint32(params[0]), uint32(params[1])))}, nil
}

func (g *fakeGuest) Memory() guestMemory { return g.mem }

func (g *fakeGuest) Close(context.Context) error {
	g.closed = true
	return nil
}
