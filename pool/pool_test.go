package pool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startPool(t *testing.T, opts ...WorkerPoolOption) *Pool {
	t.Helper()
	p := New(opts...)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		_ = p.Shutdown(time.Second)
	})
	return p
}

func TestPool_ProcessesEverySubmittedTask(t *testing.T) {
	p := startPool(t, WithWorkerCount(4))

	var count atomic.Int32
	for range 100 {
		err := p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
			count.Add(1)
			return nil
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count.Load() != 100 {
		t.Errorf("expected 100 tasks processed, got %d", count.Load())
	}
}

func TestPool_WaitWithNoTasks(t *testing.T) {
	p := startPool(t, WithWorkerCount(2))

	done := make(chan error, 1)
	go func() { done <- p.Wait(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait blocked on an empty pool")
	}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const workers = 3
	p := startPool(t, WithWorkerCount(workers), WithTaskBuffer(1))

	var active, peak atomic.Int32
	for range 30 {
		_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
			n := active.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			return nil
		})
	}

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak.Load() > workers {
		t.Errorf("expected at most %d concurrent tasks, saw %d", workers, peak.Load())
	}
}

func TestPool_WorkerIDsInRange(t *testing.T) {
	const workers = 4
	p := startPool(t, WithWorkerCount(workers))

	var mu sync.Mutex
	ids := make(map[int]bool)
	for range 50 {
		_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
			mu.Lock()
			ids[workerID] = true
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait(context.Background())

	for id := range ids {
		if id < 0 || id >= workers {
			t.Errorf("worker id %d out of range", id)
		}
	}
}

func TestPool_ReusableAcrossBatches(t *testing.T) {
	p := startPool(t, WithWorkerCount(2))

	for batch := range 3 {
		var count atomic.Int32
		for range 10 {
			_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
				count.Add(1)
				return nil
			})
		}
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("batch %d: %v", batch, err)
		}
		if count.Load() != 10 {
			t.Fatalf("batch %d: expected 10, got %d", batch, count.Load())
		}
	}
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	p := New()
	err := p.Submit(context.Background(), func(ctx context.Context, workerID int) error { return nil })
	if !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
	if err := p.Wait(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted from Wait, got %v", err)
	}
	if err := p.Shutdown(time.Second); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted from Shutdown, got %v", err)
	}
}

func TestPool_DoubleStart(t *testing.T) {
	p := startPool(t, WithWorkerCount(1))
	if err := p.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := New(WithWorkerCount(2))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	err := p.Submit(context.Background(), func(ctx context.Context, workerID int) error { return nil })
	if !errors.Is(err, ErrShutdown) {
		t.Errorf("expected ErrShutdown, got %v", err)
	}
	if err := p.Shutdown(time.Second); !errors.Is(err, ErrShutdown) {
		t.Errorf("expected ErrShutdown on second shutdown, got %v", err)
	}
}

func TestPool_ShutdownDrainsQueuedTasks(t *testing.T) {
	p := New(WithWorkerCount(1), WithTaskBuffer(10))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	var count atomic.Int32
	for range 10 {
		_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
			time.Sleep(time.Millisecond)
			count.Add(1)
			return nil
		})
	}

	if err := p.Shutdown(0); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if count.Load() != 10 {
		t.Errorf("expected queued tasks to finish before shutdown returned, got %d", count.Load())
	}
}

func TestPool_ShutdownTimeout(t *testing.T) {
	p := New(WithWorkerCount(1))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
		return nil
	})

	err := p.Shutdown(20 * time.Millisecond)
	if !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("expected ErrShutdownTimeout, got %v", err)
	}
}

func TestPool_SubmitBlocksWhenQueueFull(t *testing.T) {
	p := startPool(t, WithWorkerCount(1), WithTaskBuffer(1))

	release := make(chan struct{})
	blocker := func(ctx context.Context, workerID int) error {
		<-release
		return nil
	}

	_ = p.Submit(context.Background(), blocker) // taken by the worker
	time.Sleep(10 * time.Millisecond)
	_ = p.Submit(context.Background(), blocker) // fills the queue

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Submit(ctx, blocker); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded while queue is full, got %v", err)
	}

	close(release)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPool_WaitRespectsContext(t *testing.T) {
	p := startPool(t, WithWorkerCount(1))

	release := make(chan struct{})
	_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	close(release)
}

func TestPool_PanicRecovery(t *testing.T) {
	p := startPool(t, WithWorkerCount(2))

	_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
		panic("boom")
	})

	err := p.Wait(context.Background())
	if err == nil {
		t.Fatal("expected error from panicking task")
	}
	if !strings.Contains(err.Error(), "worker panic: boom") {
		t.Errorf("expected panic message, got %v", err)
	}

	// the worker survived and the pool is re-armed
	var ran atomic.Bool
	_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
		ran.Store(true)
		return nil
	})
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if !ran.Load() {
		t.Error("expected task to run after a panic")
	}
}
