package grilleval

import (
	"time"

	"go.uber.org/zap"

	"github.com/grilleval/grilleval-go/pkg/grilleval/gate"
)

// Option configures a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	logger      *zap.Logger
	maxOps      int64
	lockTimeout time.Duration
}

func defaultOptions() managerOptions {
	return managerOptions{
		logger:      zap.NewNop(),
		maxOps:      gate.DefaultMaxOps,
		lockTimeout: gate.DefaultTimeout,
	}
}

// WithLogger sets the logger used by the manager and the cell-fill engine.
func WithLogger(logger *zap.Logger) Option {
	return func(o *managerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxConcurrentOps overrides the process-wide cap on concurrent
// workbook operations.
func WithMaxConcurrentOps(n int64) Option {
	return func(o *managerOptions) {
		o.maxOps = n
	}
}

// WithLockTimeout overrides the bound on each lock-wait condition.
func WithLockTimeout(d time.Duration) Option {
	return func(o *managerOptions) {
		o.lockTimeout = d
	}
}
