//go:build !wasip1

package sdk

import (
	"github.com/reglet-dev/reglet-abi/abi"
	"github.com/reglet-dev/reglet-abi/handler"
	"github.com/reglet-dev/reglet-abi/log"
)

// DefaultArenaSize is the simulated linear memory behind the default adapter
// outside wasm.
const DefaultArenaSize = 4 * 1024 * 1024

func newDefaultAdapter() *handler.Adapter {
	arena := abi.NewArena(DefaultArenaSize)
	return handler.NewAdapter(arena, arena,
		handler.WithSink(log.DefaultSink()),
	)
}

// afterCall is a no-op outside wasm; the arena is fixed size.
func afterCall() {}
