package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/utkarsh5026/distmatrix/cmd"
	"github.com/utkarsh5026/distmatrix/matrix"
)

func main() {
	// Must run before anything else: the process strategy re-launches this
	// binary as its worker.
	matrix.MaybeServeWorker()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
