package matrix

import (
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// FailurePolicy decides what a concurrent executor does when a single pair
// fails.
type FailurePolicy int

const (
	// BestEffort drops the failed pair, logs it and keeps going. The run
	// succeeds with fewer records.
	BestEffort FailurePolicy = iota
	// FailFast stops scheduling new pairs and returns the first error.
	FailFast
)

func (p FailurePolicy) String() string {
	switch p {
	case BestEffort:
		return "best-effort"
	case FailFast:
		return "fail-fast"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseFailurePolicy accepts "best-effort" or "fail-fast".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "best-effort", "besteffort":
		return BestEffort, nil
	case "fail-fast", "failfast":
		return FailFast, nil
	default:
		return 0, fmt.Errorf("unknown failure policy %q", s)
	}
}

// Option configures an executor or a Pipeline.
type Option func(*config)

type config struct {
	workers      int
	taskBuffer   int
	policy       FailurePolicy
	logger       *zap.Logger
	ratePerSec   float64
	rateBurst    int
	pinWorkers   bool
	workerCmd    []string
	pointBuffer  int
	recordBuffer int
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		workers:      runtime.GOMAXPROCS(0),
		logger:       zap.NewNop(),
		pointBuffer:  64,
		recordBuffer: 256,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithWorkers sets the number of pool workers or child processes.
// Defaults to runtime.GOMAXPROCS(0). Ignored by Sequential, Threaded and Stream.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithTaskBuffer sets the capacity of the pooled task queue. Defaults to the
// worker count.
func WithTaskBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.taskBuffer = n
		}
	}
}

// WithFailurePolicy sets how the concurrent strategies react to a failed pair.
// The default is BestEffort. Sequential and Stream always fail fast.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithLogger sets the logger used for run summaries and dropped pairs.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRateLimit caps how many pairs per second the pooled strategies start.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *config) {
		c.ratePerSec = perSecond
		c.rateBurst = burst
	}
}

// WithCPUAffinity pins each pool worker to one CPU.
func WithCPUAffinity() Option {
	return func(c *config) {
		c.pinWorkers = true
	}
}

// WithWorkerCommand overrides the program launched by the Process strategy.
// The program must serve the worker protocol when started with the worker
// environment marker set; by default the running executable is re-launched.
func WithWorkerCommand(path string, args ...string) Option {
	return func(c *config) {
		if path != "" {
			c.workerCmd = append([]string{path}, args...)
		}
	}
}

// WithStreamBuffers sets the capacities of the Stream strategy's point and
// record queues.
func WithStreamBuffers(points, records int) Option {
	return func(c *config) {
		if points > 0 {
			c.pointBuffer = points
		}
		if records > 0 {
			c.recordBuffer = records
		}
	}
}
