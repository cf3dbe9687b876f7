// Package sdk is the guest-facing entry point of the calling convention.
//
// A guest export receives (ptr, len) from the host and returns the address of
// a response frame. The helpers here run a handler through the process-wide
// default adapter and turn any failure into a trap, which is how the host sees
// a failed boundary call:
//
//	//go:wasmexport echo
//	func echo(ptr, length uint32) uint32 {
//	    return sdk.BytesHandler(ptr, length, func(req []byte) ([]byte, error) {
//	        return req, nil
//	    })
//	}
//
// The host frees the returned frame with the guest's deallocate export once it
// has read it. On wasip1 each helper also forces a GC cycle once enough guest
// memory has churned since the last one.
package sdk

import (
	"sync/atomic"

	"github.com/reglet-dev/reglet-abi/handler"
)

var defaultAdapter atomic.Pointer[handler.Adapter]

// Default returns the adapter used by the boundary helpers, creating it on first use.
func Default() *handler.Adapter {
	if a := defaultAdapter.Load(); a != nil {
		return a
	}
	defaultAdapter.CompareAndSwap(nil, newDefaultAdapter())
	return defaultAdapter.Load()
}

// SetDefault replaces the default adapter and returns the previous one.
// Passing nil restores the platform default on next use.
func SetDefault(a *handler.Adapter) *handler.Adapter {
	return defaultAdapter.Swap(a)
}

// BytesHandler runs h on the request at (ptr, length) and returns the response
// frame address. It panics (traps) if the call fails.
func BytesHandler(ptr, length uint32, h handler.BytesHandler) uint32 {
	defer afterCall()
	out, err := Default().HandleBytes(ptr, length, h)
	if err != nil {
		panic(err)
	}
	return out
}

// StringHandler is BytesHandler for UTF-8 text.
func StringHandler(ptr, length uint32, h handler.StringHandler) uint32 {
	defer afterCall()
	out, err := Default().HandleString(ptr, length, h)
	if err != nil {
		panic(err)
	}
	return out
}

// LoggedStringHandler is StringHandler with request and response log lines.
func LoggedStringHandler(ptr, length uint32, h handler.StringHandler) uint32 {
	defer afterCall()
	out, err := Default().HandleLoggedString(ptr, length, h)
	if err != nil {
		panic(err)
	}
	return out
}
