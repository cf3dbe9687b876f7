package host

import (
	"context"

	"github.com/reglet-dev/reglet-abi/wireformat"
	"github.com/tetratelabs/wazero/api"
)

const (
	exportAllocate   = "allocate"
	exportDeallocate = "deallocate"
	exportMemory     = "memory"
)

// guestModule is the part of an instantiated module a Plugin needs.
type guestModule interface {
	Name() string
	HasExport(name string) bool
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	Memory() guestMemory
	Close(ctx context.Context) error
}

// guestMemory is the host view of a guest's linear memory.
type guestMemory interface {
	wireformat.FrameMemory
	Write(offset uint32, v []byte) bool
}

// wazeroModule implements guestModule over a wazero module instance.
type wazeroModule struct {
	module api.Module
}

func (m *wazeroModule) Name() string {
	return m.module.Name()
}

func (m *wazeroModule) HasExport(name string) bool {
	return m.module.ExportedFunction(name) != nil
}

func (m *wazeroModule) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := m.module.ExportedFunction(name)
	if fn == nil {
		return nil, ErrExportNotFound
	}
	return fn.Call(ctx, params...)
}

func (m *wazeroModule) Memory() guestMemory {
	return m.module.Memory()
}

func (m *wazeroModule) Close(ctx context.Context) error {
	return m.module.Close(ctx)
}
