package host

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/reglet-dev/reglet-abi/abi"
	"github.com/reglet-dev/reglet-abi/wireformat"
	"go.uber.org/zap"
)

// Plugin is an instantiated guest. Calls are serialized; the guest is
// single-threaded and the convention has no reentrancy.
type Plugin struct {
	mu     sync.Mutex
	guest  guestModule
	logs   *guestLog
	logger *zap.Logger
	cfg    executorConfig
}

func newPlugin(guest guestModule, logs *guestLog, cfg executorConfig) *Plugin {
	return &Plugin{
		guest:  guest,
		logs:   logs,
		logger: cfg.logger.With(zap.String("plugin", guest.Name())),
		cfg:    cfg,
	}
}

// Name returns the module instance name log lines are attributed to.
func (p *Plugin) Name() string {
	return p.guest.Name()
}

// Call stages payload in the guest, calls export(ptr, len), and returns a
// copy of the response frame's payload. The guest owns the request region
// once the call starts; the frame is handed back with deallocate after it is
// read. When staging or reading fails the host returns the region it still
// holds with a best-effort deallocate. A region is lost only if that
// deallocate itself fails.
func (p *Plugin) Call(ctx context.Context, export string, payload []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.guest.HasExport(export) {
		return nil, &CallError{Export: export, Phase: PhaseLookup, Err: ErrExportNotFound}
	}
	if p.cfg.maxRequestSize > 0 && uint64(len(payload)) > uint64(p.cfg.maxRequestSize) {
		return nil, &CallError{Export: export, Phase: PhaseAllocate,
			Err: fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrRequestTooLarge, len(payload), p.cfg.maxRequestSize)}
	}
	length := uint32(len(payload)) //nolint:gosec // G115: bounded above or by the wasm32 address space

	ptr, err := p.allocate(ctx, length)
	if err != nil {
		return nil, &CallError{Export: export, Phase: PhaseAllocate, Err: err}
	}
	if length > 0 && !p.guest.Memory().Write(ptr, payload) {
		p.release(ctx, export, ptr)
		return nil, &CallError{Export: export, Phase: PhaseWrite,
			Err: fmt.Errorf("%w: %d bytes at %#x", wireformat.ErrOutOfBounds, length, ptr)}
	}

	results, err := p.guest.Call(ctx, export, uint64(ptr), uint64(length))
	if err != nil {
		return nil, &CallError{Export: export, Phase: PhaseInvoke, Err: err}
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return nil, &CallError{Export: export, Phase: PhaseRead, Err: ErrNullFrame}
	}
	frame := uint32(results[0])

	resp, err := wireformat.ReadFrame(p.guest.Memory(), frame)
	if err != nil {
		p.release(ctx, export, frame)
		return nil, &CallError{Export: export, Phase: PhaseRead, Err: err}
	}

	if _, err := p.guest.Call(ctx, exportDeallocate, uint64(frame)); err != nil {
		return nil, &CallError{Export: export, Phase: PhaseFree, Err: err}
	}

	p.logger.Debug("call completed",
		zap.String("export", export),
		zap.Int("request_bytes", len(payload)),
		zap.Int("response_bytes", len(resp)),
	)
	return resp, nil
}

// CallString is Call for UTF-8 text. A response that is not valid UTF-8 is
// an error.
func (p *Plugin) CallString(ctx context.Context, export, s string) (string, error) {
	resp, err := p.Call(ctx, export, []byte(s))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(resp) {
		return "", &CallError{Export: export, Phase: PhaseDecode, Err: abi.ErrInvalidUTF8}
	}
	return string(resp), nil
}

// Close flushes any partial guest log line and closes the module instance.
func (p *Plugin) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logs.drop(p.guest.Name())
	return p.guest.Close(ctx)
}

// release hands a region back to the guest on an error path. A failure is
// logged; the caller already has an error to report.
func (p *Plugin) release(ctx context.Context, export string, ptr uint32) {
	if _, err := p.guest.Call(ctx, exportDeallocate, uint64(ptr)); err != nil {
		p.logger.Warn("failed to release guest region",
			zap.String("export", export),
			zap.Uint32("ptr", ptr),
			zap.Error(err),
		)
	}
}

func (p *Plugin) allocate(ctx context.Context, size uint32) (uint32, error) {
	if size == 0 {
		return 0, nil
	}
	results, err := p.guest.Call(ctx, exportAllocate, uint64(size))
	if err != nil {
		return 0, err
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, fmt.Errorf("guest allocate returned null for %d bytes", size)
	}
	return uint32(results[0]), nil
}
