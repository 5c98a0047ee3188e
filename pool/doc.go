// Package pool provides an explicitly owned worker pool: a fixed number of
// long-lived worker goroutines pulling tasks from one bounded, shared queue.
//
// A Pool has a visible lifecycle. It is created with New, started with Start,
// fed with Submit, synchronised with Wait and stopped with Shutdown. Nothing
// is global: every caller that wants pooled execution owns its Pool.
//
// # Basic Usage
//
//	p := pool.New(pool.WithWorkerCount(4))
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.Shutdown(5 * time.Second)
//
//	for _, job := range jobs {
//	    if err := p.Submit(ctx, func(ctx context.Context, workerID int) error {
//	        return handle(ctx, job)
//	    }); err != nil {
//	        return err
//	    }
//	}
//	err := p.Wait(ctx) // completion barrier
//
// # Completion Barrier
//
// Wait blocks until the number of submitted-but-unfinished tasks reaches zero.
// It does not care which worker ran which task, and it can be called once per
// batch on a long-lived pool.
//
// # Error Handling
//
// By default the pool is fail-fast: the first task error is remembered, every
// task still queued behind it is skipped, and Wait returns that error.
// WithContinueOnError switches to best-effort: a failing task is logged and
// the workers move on, so Wait returns nil even though some tasks failed.
// Panics in tasks are recovered and treated as task errors in both modes.
//
// # Configuration Options
//
//   - WithWorkerCount(n): number of workers (default: GOMAXPROCS)
//   - WithTaskBuffer(n): task queue capacity (default: worker count)
//   - WithContinueOnError(): best-effort error policy
//   - WithRateLimit(tasksPerSecond, burst): throttle task starts
//   - WithCPUAffinity(): pin each worker to a CPU (linux)
//   - WithLogger(l): zap logger for task failures and lifecycle events
//   - WithBeforeTaskStart / WithOnTaskEnd: observation hooks
package pool
