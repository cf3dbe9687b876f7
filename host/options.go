package host

import "go.uber.org/zap"

const (
	// DefaultLogModule is the import module guests log through.
	DefaultLogModule = "env"

	// DefaultMaxLogLineSize caps one guest log line (64KB). Longer lines are
	// truncated, not split.
	DefaultMaxLogLineSize = 64 * 1024

	// DefaultMaxRequestSize limits the payload Call will stage in the guest (1MB).
	DefaultMaxRequestSize = 1 * 1024 * 1024
)

type executorConfig struct {
	logger         *zap.Logger
	logModule      string
	maxLogLineSize int
	maxRequestSize uint32
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		logger:         zap.NewNop(),
		logModule:      DefaultLogModule,
		maxLogLineSize: DefaultMaxLogLineSize,
		maxRequestSize: DefaultMaxRequestSize,
	}
}

// Option configures an Executor.
type Option func(*executorConfig)

// WithLogger sets the logger guest log lines and host diagnostics go to.
func WithLogger(l *zap.Logger) Option {
	return func(c *executorConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLogModule sets the import module name that provides write and flush.
func WithLogModule(name string) Option {
	return func(c *executorConfig) {
		c.logModule = name
	}
}

// WithMaxLogLineSize sets the longest guest log line kept.
func WithMaxLogLineSize(n int) Option {
	return func(c *executorConfig) {
		c.maxLogLineSize = n
	}
}

// WithMaxRequestSize sets the largest payload Call accepts. Zero disables the limit.
func WithMaxRequestSize(n uint32) Option {
	return func(c *executorConfig) {
		c.maxRequestSize = n
	}
}
