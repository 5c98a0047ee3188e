package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/utkarsh5026/distmatrix/internal/queue"
)

// Pool is a fixed-size set of workers sharing one bounded task queue.
// All methods are safe for concurrent use, but Wait is a barrier over every
// outstanding task, so batches that need separate barriers should use
// separate pools or run one after the other.
type Pool struct {
	conf  *workerPoolConfig
	mu    sync.RWMutex
	state *poolState
}

// poolState holds the runtime state of a started pool.
type poolState struct {
	tasks    *queue.Queue[Task]
	cancel   context.CancelFunc
	started  atomic.Bool
	shutdown atomic.Bool
	done     chan struct{} // closed when all workers have exited

	errMu    sync.Mutex
	firstErr error
	failing  atomic.Bool // fail-fast: skip queued tasks until the next Wait
	failed   atomic.Int64
}

// New creates an unstarted pool. No goroutines run until Start.
//
// Example:
//
//	p := pool.New(pool.WithWorkerCount(8), pool.WithTaskBuffer(32))
func New(opts ...WorkerPoolOption) *Pool {
	return &Pool{conf: newConfig(opts...)}
}

// WorkerCount returns the configured number of workers.
func (p *Pool) WorkerCount() int {
	return p.conf.workerCount
}

// Start launches the workers. ctx bounds the lifetime of the pool: when it
// is cancelled workers stop picking up new tasks.
//
// Returns ErrAlreadyStarted if the pool was started before, and a wrapped
// queue error if the task queue cannot be created.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != nil {
		return ErrAlreadyStarted
	}

	tasks, err := queue.New[Task](p.conf.taskBuffer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	state := &poolState{
		tasks:  tasks,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.state = state
	state.started.Store(true)

	var g errgroup.Group
	for i := range p.conf.workerCount {
		g.Go(func() error {
			return state.worker(ctx, i, p.conf)
		})
	}

	go func() {
		_ = g.Wait()
		close(state.done)
	}()

	p.conf.logger.Debug("pool started",
		zap.Int("workers", p.conf.workerCount),
		zap.Int("buffer", p.conf.taskBuffer),
		zap.Bool("continue_on_error", p.conf.continueOnError))
	return nil
}

// Submit enqueues a task, blocking while the queue is full.
//
// Returns ErrNotStarted or ErrShutdown when the pool cannot take work, and
// ctx.Err() if ctx ends while waiting for queue space.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	state, err := p.running()
	if err != nil {
		return err
	}

	if err := state.tasks.Put(ctx, task); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrShutdown
		}
		return err
	}
	return nil
}

// Wait is the completion barrier: it blocks until every task submitted so far
// has finished (or been skipped), then reports the batch outcome.
//
// In fail-fast mode it returns the first task error of the batch and re-arms
// the pool for the next batch. In best-effort mode it returns nil.
// If the workers exit before the barrier is reached, Wait returns ErrShutdown.
func (p *Pool) Wait(ctx context.Context) error {
	state, err := p.started()
	if err != nil {
		return err
	}

	joinCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-state.done:
			cancel()
		case <-joinCtx.Done():
		}
	}()

	if err := state.tasks.Join(joinCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrShutdown
	}

	return state.takeErr()
}

// Failed returns the number of tasks that returned an error or panicked since
// the pool started.
func (p *Pool) Failed() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state == nil {
		return 0
	}
	return p.state.failed.Load()
}

// Shutdown stops accepting tasks, lets workers finish what is already queued
// and waits for them to exit.
//
// Parameters:
//   - timeout: maximum duration to wait (0 = wait forever). On timeout the
//     workers are cancelled and ErrShutdownTimeout is returned.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	state := p.state
	if state == nil || !state.started.Load() {
		p.mu.Unlock()
		return ErrNotStarted
	}
	if !state.shutdown.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return ErrShutdown
	}
	p.mu.Unlock()

	state.tasks.Close()
	err := waitUntil(state.done, timeout)
	state.cancel()
	if err != nil {
		<-state.done
	}

	p.conf.logger.Debug("pool stopped", zap.Int64("failed_tasks", state.failed.Load()))
	return err
}

func (p *Pool) started() (*poolState, error) {
	p.mu.RLock()
	state := p.state
	p.mu.RUnlock()

	if state == nil || !state.started.Load() {
		return nil, ErrNotStarted
	}
	return state, nil
}

func (p *Pool) running() (*poolState, error) {
	state, err := p.started()
	if err != nil {
		return nil, err
	}
	if state.shutdown.Load() {
		return nil, ErrShutdown
	}
	return state, nil
}

func (s *poolState) recordErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	s.failing.Store(true)
}

func (s *poolState) takeErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.firstErr
	s.firstErr = nil
	s.failing.Store(false)
	return err
}
