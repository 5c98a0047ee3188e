package matrix

import (
	"context"
	"errors"
	"sync"

	"github.com/utkarsh5026/distmatrix/geo"
	"github.com/utkarsh5026/distmatrix/internal/pairs"
	"github.com/utkarsh5026/distmatrix/pool"
)

// pooledExecutor submits one task per pair to a fixed-size worker pool and
// uses the pool's Wait as the completion barrier.
type pooledExecutor struct {
	conf *config
}

func (e *pooledExecutor) Execute(ctx context.Context, points []geo.Point, m geo.Measure) ([]Record, error) {
	total := pairs.Count(len(points))
	if total == 0 {
		return []Record{}, nil
	}

	out := NewCollector(total)
	err := runPooled(ctx, e.conf, min(e.conf.workers, total), points,
		func(_ context.Context, _ int, p pairs.Pair[geo.Point]) error {
			rec, err := measure(m, p)
			if err != nil {
				return err
			}
			out.add(rec)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out.Records(), nil
}

type pairTask func(ctx context.Context, workerID int, p pairs.Pair[geo.Point]) error

// runPooled runs fn for every pair of points on a pool of the given size.
//
// Under BestEffort a failing pair is logged by the pool and skipped. Under
// FailFast the first failure stops submission and is returned. A
// ResourceError always stops the run.
func runPooled(ctx context.Context, conf *config, workers int, points []geo.Point, fn pairTask) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		stopOnce sync.Once
		stopErr  error
	)
	stop := func(err error) {
		stopOnce.Do(func() {
			stopErr = err
			cancel()
		})
	}

	p := pool.New(poolOptions(conf, workers)...)
	if err := p.Start(runCtx); err != nil {
		return &ResourceError{Op: "start worker pool", Err: err}
	}

	for pr := range pairs.Generate(points) {
		task := func(taskCtx context.Context, workerID int) error {
			if runCtx.Err() != nil {
				return nil
			}
			err := fn(taskCtx, workerID, pr)
			if err == nil {
				return nil
			}
			var rerr *ResourceError
			if errors.As(err, &rerr) || conf.policy == FailFast {
				stop(err)
			}
			return err
		}
		if err := p.Submit(runCtx, task); err != nil {
			break
		}
	}

	waitErr := p.Wait(runCtx)
	// Shutdown waits for every worker, so stopErr is settled afterwards.
	_ = p.Shutdown(0)

	if stopErr != nil {
		return stopErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if conf.policy == FailFast {
		return waitErr
	}
	return nil
}

func poolOptions(conf *config, workers int) []pool.WorkerPoolOption {
	opts := []pool.WorkerPoolOption{
		pool.WithWorkerCount(workers),
		pool.WithTaskBuffer(conf.taskBuffer),
		pool.WithLogger(conf.logger),
	}
	if conf.policy == BestEffort {
		opts = append(opts, pool.WithContinueOnError())
	}
	if conf.ratePerSec > 0 {
		opts = append(opts, pool.WithRateLimit(conf.ratePerSec, max(conf.rateBurst, 1)))
	}
	if conf.pinWorkers {
		opts = append(opts, pool.WithCPUAffinity())
	}
	return opts
}
