// Package handler adapts injected business logic to the guest boundary call:
// decode the request at (ptr, len), invoke the handler once, encode its result
// as a response frame, and release every intermediate buffer on all exit paths.
package handler

import (
	"github.com/reglet-dev/reglet-abi/abi"
	"github.com/reglet-dev/reglet-abi/log"
)

// DefaultMaxRequestSize limits the size of incoming requests (1MB).
const DefaultMaxRequestSize = 1 * 1024 * 1024

// BytesHandler is the business logic behind a bytes boundary call.
type BytesHandler func(request []byte) ([]byte, error)

// StringHandler is the business logic behind a string boundary call.
type StringHandler func(request string) (string, error)

// Adapter runs handlers against one linear memory and allocator.
// It is not safe for concurrent use; the host serializes calls into the guest.
type Adapter struct {
	codec  *abi.Codec
	logger *log.Logger
	cfg    adapterConfig
}

// Option configures an Adapter.
type Option func(*adapterConfig)

type adapterConfig struct {
	sink           log.Sink
	narrowStrings  bool
	maxRequestSize uint32
	middleware     []Middleware
}

func defaultAdapterConfig() adapterConfig {
	return adapterConfig{
		sink:           log.Discard,
		maxRequestSize: DefaultMaxRequestSize,
	}
}

// WithSink sets the log sink HandleLoggedString writes to.
func WithSink(s log.Sink) Option {
	return func(c *adapterConfig) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithNarrowStrings enables the legacy one-byte-per-rune response encoding.
// Only use it for hosts that cannot read UTF-8 frames.
func WithNarrowStrings() Option {
	return func(c *adapterConfig) {
		c.narrowStrings = true
	}
}

// WithMaxRequestSize sets the largest request the adapter will decode.
func WithMaxRequestSize(n uint32) Option {
	return func(c *adapterConfig) {
		c.maxRequestSize = n
	}
}

// WithMiddleware wraps every bytes handler. The first middleware is outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *adapterConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NewAdapter creates an Adapter over mem and alloc.
func NewAdapter(mem abi.Memory, alloc abi.Allocator, opts ...Option) *Adapter {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var codecOpts []abi.CodecOption
	if cfg.narrowStrings {
		codecOpts = append(codecOpts, abi.WithNarrowStrings())
	}

	return &Adapter{
		codec:  abi.NewCodec(mem, alloc, codecOpts...),
		logger: log.NewLogger(cfg.sink),
		cfg:    cfg,
	}
}

// Codec returns the codec the adapter decodes and encodes with.
func (a *Adapter) Codec() *abi.Codec {
	return a.codec
}

// Logger returns the logger HandleLoggedString writes to.
func (a *Adapter) Logger() *log.Logger {
	return a.logger
}

// HandleBytes decodes the request at (ptr, length), runs h on it, and returns
// the address of the response frame. The request region is always freed. On
// error no frame is produced and nothing stays allocated.
func (a *Adapter) HandleBytes(ptr, length uint32, h BytesHandler) (uint32, error) {
	if err := a.checkSize(ptr, length); err != nil {
		return 0, err
	}

	req := a.codec.DecodeBytes(ptr, length)
	defer req.Release()

	resp, err := a.chain(h)(req.Bytes())
	if err != nil {
		return 0, &HandlerError{Flavor: FlavorBytes, Err: err}
	}
	req.Release()

	return a.codec.EncodeBytes(a.codec.Stage(resp)), nil
}

// HandleString is HandleBytes for UTF-8 text. Invalid UTF-8 in the request
// returns an *abi.DecodeError without invoking h.
func (a *Adapter) HandleString(ptr, length uint32, h StringHandler) (uint32, error) {
	req, err := a.decodeString(ptr, length)
	if err != nil {
		return 0, err
	}

	resp, err := h(req)
	if err != nil {
		return 0, &HandlerError{Flavor: FlavorString, Err: err}
	}
	return a.codec.EncodeString(resp), nil
}

// HandleLoggedString is HandleString with one log line before the handler
// runs ("Request: ...") and one after ("Response: ..."), both written before
// the response frame is built.
func (a *Adapter) HandleLoggedString(ptr, length uint32, h StringHandler) (uint32, error) {
	req, err := a.decodeString(ptr, length)
	if err != nil {
		a.logger.Logf("Error: %v", err)
		return 0, err
	}

	a.logger.Log("Request: " + req)
	resp, err := h(req)
	if err != nil {
		a.logger.Logf("Error: %v", err)
		return 0, &HandlerError{Flavor: FlavorLoggedString, Err: err}
	}
	a.logger.Log("Response: " + resp)

	return a.codec.EncodeString(resp), nil
}

func (a *Adapter) decodeString(ptr, length uint32) (string, error) {
	if err := a.checkSize(ptr, length); err != nil {
		return "", err
	}
	return a.codec.DecodeString(ptr, length)
}

// checkSize rejects oversized requests. The region still belongs to the
// guest, so it is freed here.
func (a *Adapter) checkSize(ptr, length uint32) error {
	if a.cfg.maxRequestSize == 0 || length <= a.cfg.maxRequestSize {
		return nil
	}
	a.codec.Allocator().Free(ptr)
	return &RequestTooLargeError{Size: length, Limit: a.cfg.maxRequestSize}
}

func (a *Adapter) chain(h BytesHandler) BytesHandler {
	for i := len(a.cfg.middleware) - 1; i >= 0; i-- {
		h = a.cfg.middleware[i](h)
	}
	return h
}
