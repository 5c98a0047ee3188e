package matrix

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/utkarsh5026/distmatrix/geo"
	"github.com/utkarsh5026/distmatrix/internal/pairs"
)

// Executor computes the distance of every unordered pair of points.
//
// Given n points a successful Execute returns n·(n-1)/2 records under a
// fail-fast policy; under best-effort it may return fewer, never more.
// Fewer than two points yield an empty result.
type Executor interface {
	Execute(ctx context.Context, points []geo.Point, m geo.Measure) ([]Record, error)
}

// Strategy selects an execution strategy.
type Strategy int

const (
	Sequential Strategy = iota
	Threaded
	Pooled
	Process
	Stream
)

var strategyNames = []string{"sequential", "threaded", "pool", "process", "stream"}

func (s Strategy) String() string {
	if s >= 0 && int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy resolves a strategy by its case-insensitive name.
func ParseStrategy(name string) (Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, sname := range strategyNames {
		if sname == n {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q (want one of %s)", name, strings.Join(strategyNames, ", "))
}

// Strategies lists every strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{Sequential, Threaded, Pooled, Process, Stream}
}

// New returns an executor for the given strategy.
func New(s Strategy, opts ...Option) (Executor, error) {
	conf := newConfig(opts...)

	var inner Executor
	switch s {
	case Sequential:
		inner = &sequentialExecutor{}
	case Threaded:
		inner = &threadedExecutor{conf: conf}
	case Pooled:
		inner = &pooledExecutor{conf: conf}
	case Process:
		inner = &processExecutor{conf: conf}
	case Stream:
		inner = &streamExecutor{conf: conf}
	default:
		return nil, fmt.Errorf("unknown strategy %d", int(s))
	}

	return &instrumented{inner: inner, strategy: s, logger: conf.logger}, nil
}

// instrumented logs and records metrics for every run of inner.
type instrumented struct {
	inner    Executor
	strategy Strategy
	logger   *zap.Logger
}

func (e *instrumented) Execute(ctx context.Context, points []geo.Point, m geo.Measure) ([]Record, error) {
	if m == nil {
		return nil, errors.New("nil measure")
	}

	name := e.strategy.String()
	expected := pairs.Count(len(points))
	start := time.Now()

	records, err := e.inner.Execute(ctx, points, m)
	elapsed := time.Since(start)
	runDurationHistogram.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		var cerr *ComputationError
		if errors.As(err, &cerr) {
			pairFailuresCounter.WithLabelValues(name).Inc()
		}
		e.logger.Error("distance matrix failed",
			zap.String("strategy", name),
			zap.Int("points", len(points)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	dropped := expected - len(records)
	pairsComputedCounter.WithLabelValues(name).Add(float64(len(records)))
	if dropped > 0 {
		pairFailuresCounter.WithLabelValues(name).Add(float64(dropped))
	}

	e.logger.Info("distance matrix computed",
		zap.String("strategy", name),
		zap.Int("points", len(points)),
		zap.Int("pairs", len(records)),
		zap.Int("dropped", dropped),
		zap.Duration("elapsed", elapsed))
	return records, nil
}
