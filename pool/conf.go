package pool

import (
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WorkerPoolOption is a functional option for configuring the worker pool.
type WorkerPoolOption func(*workerPoolConfig)

type workerPoolConfig struct {
	workerCount     int
	taskBuffer      int
	continueOnError bool
	pinWorkers      bool
	rateLimiter     *rate.Limiter
	logger          *zap.Logger

	beforeTaskStart func(workerID int)
	onTaskEnd       func(workerID int, err error)
}

func newConfig(opts ...WorkerPoolOption) *workerPoolConfig {
	cfg := &workerPoolConfig{
		workerCount: runtime.GOMAXPROCS(0),
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.taskBuffer == 0 {
		cfg.taskBuffer = cfg.workerCount
	}
	return cfg
}

// WithWorkerCount sets the number of concurrent workers.
// If not specified, defaults to runtime.GOMAXPROCS(0).
func WithWorkerCount(count int) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		if count > 0 {
			cfg.workerCount = count
		}
	}
}

// WithTaskBuffer sets the capacity of the shared task queue. Submit blocks
// while the queue is full. If not specified, defaults to the number of workers.
func WithTaskBuffer(size int) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		if size > 0 {
			cfg.taskBuffer = size
		}
	}
}

// WithContinueOnError makes the pool best-effort: a failed task is logged and
// skipped instead of aborting the batch.
func WithContinueOnError() WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.continueOnError = true
	}
}

// WithRateLimit sets a rate limiter for controlling task throughput.
// tasksPerSecond specifies the maximum number of tasks to start per second.
// burst specifies the maximum number of tasks that can start in a burst.
// This is useful when tasks call an external, metered service.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithCPUAffinity pins worker i to logical CPU i mod NumCPU for its lifetime.
func WithCPUAffinity() WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.pinWorkers = true
	}
}

// WithLogger sets the logger used for task failures and lifecycle events.
func WithLogger(logger *zap.Logger) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithBeforeTaskStart registers a hook called on the worker goroutine right
// before a task runs. Skipped tasks do not trigger it.
func WithBeforeTaskStart(fn func(workerID int)) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd registers a hook called after every executed task with the
// task's error (nil on success).
func WithOnTaskEnd(fn func(workerID int, err error)) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.onTaskEnd = fn
	}
}
