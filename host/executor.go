package host

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// Executor owns a wazero runtime and the host modules guests import.
type Executor struct {
	runtime wazero.Runtime
	logs    *guestLog
	cfg     executorConfig
	seq     atomic.Uint64
}

// NewExecutor creates a runtime with WASI preview1 and the guest log module.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Executor{
		logs: newGuestLog(cfg.logger, cfg.maxLogLineSize),
		cfg:  cfg,
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	if err := e.registerLogModule(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register log module: %w", err)
	}

	return e, nil
}

// Close releases the runtime and every plugin loaded into it.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// registerLogModule exports write(i32) and flush() under the configured
// module name. Bytes are attributed to the calling module instance.
func (e *Executor) registerLogModule(ctx context.Context) error {
	_, err := e.runtime.NewHostModuleBuilder(e.cfg.logModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			e.logs.write(mod.Name(), byte(stack[0]))
		}), []api.ValueType{api.ValueTypeI32}, nil).
		Export("write").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, _ []uint64) {
			e.logs.flush(mod.Name())
		}), nil, nil).
		Export("flush").
		Instantiate(ctx)
	return err
}

// LoadPlugin compiles and instantiates a guest module. The module must
// export its memory along with allocate and deallocate; _initialize runs
// when present.
func (e *Executor) LoadPlugin(ctx context.Context, wasm []byte) (*Plugin, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	if _, ok := compiled.ExportedMemories()[exportMemory]; !ok {
		_ = compiled.Close(ctx)
		return nil, ErrNoMemory
	}
	fns := compiled.ExportedFunctions()
	for _, name := range []string{exportAllocate, exportDeallocate} {
		if _, ok := fns[name]; !ok {
			_ = compiled.Close(ctx)
			return nil, fmt.Errorf("%w: %s", ErrExportNotFound, name)
		}
	}

	name := fmt.Sprintf("plugin-%d", e.seq.Add(1))
	config := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize").
		WithStderr(os.Stderr)

	mod, err := e.runtime.InstantiateModule(ctx, compiled, config)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	e.cfg.logger.Debug("plugin loaded", zap.String("plugin", name), zap.Int("exports", len(fns)))
	return newPlugin(&wazeroModule{module: mod}, e.logs, e.cfg), nil
}
