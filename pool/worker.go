package pool

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/utkarsh5026/distmatrix/internal/cpu"
)

// worker is the loop run by every pool goroutine. It exits when the queue is
// closed and drained, or when the pool context ends. Every task taken from the
// queue is marked done exactly once, whether it ran, failed or was skipped,
// so Wait can never miss one.
func (s *poolState) worker(ctx context.Context, workerID int, conf *workerPoolConfig) error {
	if conf.pinWorkers {
		release, err := cpu.Pin(workerID)
		if err != nil {
			conf.logger.Warn("cpu pinning failed", zap.Int("worker", workerID), zap.Error(err))
		}
		defer release()
	}

	for {
		task, err := s.tasks.Get(ctx)
		if err != nil {
			return nil
		}

		s.execute(ctx, workerID, conf, task)
		s.tasks.TaskDone()
	}
}

func (s *poolState) execute(ctx context.Context, workerID int, conf *workerPoolConfig, task Task) {
	if !conf.continueOnError && s.failing.Load() {
		return
	}

	if conf.rateLimiter != nil {
		if err := conf.rateLimiter.Wait(ctx); err != nil {
			// A cancelled pool skips the task; only a limiter refusal counts as a failure.
			if ctx.Err() == nil {
				s.fail(workerID, conf, err)
			}
			return
		}
	}

	if conf.beforeTaskStart != nil {
		conf.beforeTaskStart(workerID)
	}

	err := runWithRecovery(ctx, workerID, task)

	if conf.onTaskEnd != nil {
		conf.onTaskEnd(workerID, err)
	}

	if err != nil {
		s.fail(workerID, conf, err)
	}
}

func (s *poolState) fail(workerID int, conf *workerPoolConfig, err error) {
	s.failed.Add(1)
	if conf.continueOnError {
		conf.logger.Warn("task failed, continuing", zap.Int("worker", workerID), zap.Error(err))
		return
	}
	s.recordErr(err)
}

// runWithRecovery executes a task, converting a panic into an error so a bad
// task cannot take its worker down with it.
func runWithRecovery(ctx context.Context, workerID int, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("worker panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()

	return task(ctx, workerID)
}
