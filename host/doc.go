// Package host drives the guest calling convention from the embedding side.
//
// It wraps a wazero runtime, provides the env module guests log through
// (write/flush, delivered to a zap logger one line at a time), and calls guest
// exports the way the convention expects: reserve the request with the
// guest's allocate export, call export(ptr, len), read the length-prefixed
// frame at the returned address, then hand it back with deallocate.
package host
