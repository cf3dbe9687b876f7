//go:build wasip1

package sdk

import (
	"github.com/reglet-dev/reglet-abi/abi"
	"github.com/reglet-dev/reglet-abi/handler"
	"github.com/reglet-dev/reglet-abi/log"
)

func newDefaultAdapter() *handler.Adapter {
	return handler.NewAdapter(abi.Linear{}, abi.DefaultPinned(),
		handler.WithSink(log.DefaultSink()),
	)
}

// afterCall bounds guest memory growth across boundary calls.
func afterCall() {
	abi.DefaultPinned().Collect()
}
