package pool

import (
	"context"
	"errors"
)

// Task is a unit of work run by one pool worker. workerID identifies the
// worker in [0, WorkerCount) so a task can reach per-worker resources.
type Task func(ctx context.Context, workerID int) error

var (
	ErrNotStarted      = errors.New("pool not started")
	ErrAlreadyStarted  = errors.New("pool already started")
	ErrShutdown        = errors.New("pool shut down")
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")
)
