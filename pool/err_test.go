package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPool_FailFast(t *testing.T) {
	p := startPool(t, WithWorkerCount(1), WithTaskBuffer(20))

	expectedErr := errors.New("processing error")
	var ran atomic.Int32

	for i := range 20 {
		_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
			ran.Add(1)
			if i == 2 {
				return expectedErr
			}
			return nil
		})
	}

	err := p.Wait(context.Background())
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected %v, got %v", expectedErr, err)
	}
	if ran.Load() >= 20 {
		t.Errorf("expected tasks after the failure to be skipped, %d ran", ran.Load())
	}
	if p.Failed() != 1 {
		t.Errorf("expected 1 failed task, got %d", p.Failed())
	}

	// next batch starts clean
	if err := p.Wait(context.Background()); err != nil {
		t.Errorf("expected error to be consumed by the first Wait, got %v", err)
	}
}

func TestPool_ContinueOnError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := startPool(t,
		WithWorkerCount(3),
		WithContinueOnError(),
		WithLogger(zap.New(core)),
	)

	var ok atomic.Int32
	for i := range 30 {
		_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
			if i%10 == 0 {
				return errors.New("bad task")
			}
			ok.Add(1)
			return nil
		})
	}

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("expected best-effort Wait to return nil, got %v", err)
	}
	if ok.Load() != 27 {
		t.Errorf("expected 27 successful tasks, got %d", ok.Load())
	}
	if p.Failed() != 3 {
		t.Errorf("expected 3 failed tasks, got %d", p.Failed())
	}
	if n := logs.FilterMessage("task failed, continuing").Len(); n != 3 {
		t.Errorf("expected 3 failure log entries, got %d", n)
	}
}

func TestPool_Hooks(t *testing.T) {
	var starts, ends, endErrs atomic.Int32
	p := startPool(t,
		WithWorkerCount(2),
		WithContinueOnError(),
		WithBeforeTaskStart(func(workerID int) { starts.Add(1) }),
		WithOnTaskEnd(func(workerID int, err error) {
			ends.Add(1)
			if err != nil {
				endErrs.Add(1)
			}
		}),
	)

	for i := range 6 {
		_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
			if i == 0 {
				return errors.New("fail")
			}
			return nil
		})
	}
	_ = p.Wait(context.Background())

	if starts.Load() != 6 || ends.Load() != 6 {
		t.Errorf("expected 6 starts and 6 ends, got %d and %d", starts.Load(), ends.Load())
	}
	if endErrs.Load() != 1 {
		t.Errorf("expected 1 end hook with error, got %d", endErrs.Load())
	}
}

func TestPool_RateLimit(t *testing.T) {
	p := startPool(t, WithWorkerCount(4), WithRateLimit(100, 1))

	start := time.Now()
	for range 6 {
		_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error { return nil })
	}
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// burst of 1 at 100/s: five extra tokens need ~50ms
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected rate limiting to slow the batch, took %v", elapsed)
	}
}

func TestPool_RateLimitCancelIsNotAFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := New(
		WithWorkerCount(1),
		WithTaskBuffer(4),
		WithContinueOnError(),
		WithRateLimit(0.001, 1),
		WithLogger(zap.New(core)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	var ran atomic.Int32
	for range 3 {
		_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
			ran.Add(1)
			return nil
		})
	}

	// the second task is now parked on the limiter
	time.Sleep(50 * time.Millisecond)
	cancel()
	_ = p.Shutdown(time.Second)

	if ran.Load() != 1 {
		t.Errorf("expected only the burst task to run, got %d", ran.Load())
	}
	if p.Failed() != 0 {
		t.Errorf("expected no failed tasks after cancellation, got %d", p.Failed())
	}
	if n := logs.FilterMessage("task failed, continuing").Len(); n != 0 {
		t.Errorf("expected no failure log entries, got %d", n)
	}
}

func TestPool_CPUAffinity(t *testing.T) {
	p := startPool(t, WithWorkerCount(2), WithCPUAffinity())

	var count atomic.Int32
	for range 10 {
		_ = p.Submit(context.Background(), func(ctx context.Context, workerID int) error {
			count.Add(1)
			return nil
		})
	}
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count.Load() != 10 {
		t.Errorf("expected 10 tasks, got %d", count.Load())
	}
}
