package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/utkarsh5026/distmatrix/geo"
	"github.com/utkarsh5026/distmatrix/matrix"
	"github.com/utkarsh5026/distmatrix/pool"
)

// BenchmarkStrategies compares every strategy on the same input.
func BenchmarkStrategies(b *testing.B) {
	for _, n := range []int{50, 200} {
		points := randomPoints(n)
		for _, s := range matrix.Strategies() {
			if s == matrix.Threaded && n > 100 {
				// one goroutine per pair; skip the large input
				continue
			}
			b.Run(fmt.Sprintf("%s/points=%d", s, n), func(b *testing.B) {
				runExecutor(b, mustExecutor(b, s, matrix.WithWorkers(4)), points, haversine)
			})
		}
	}
}

func BenchmarkPooled_WorkerScaling(b *testing.B) {
	points := randomPoints(200)
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			runExecutor(b, mustExecutor(b, matrix.Pooled, matrix.WithWorkers(workers)), points, haversine)
		})
	}
}

func BenchmarkPooled_TaskBuffer(b *testing.B) {
	points := randomPoints(200)
	for _, buffer := range []int{1, 64, 4096} {
		b.Run(fmt.Sprintf("buffer=%d", buffer), func(b *testing.B) {
			exec := mustExecutor(b, matrix.Pooled, matrix.WithWorkers(4), matrix.WithTaskBuffer(buffer))
			runExecutor(b, exec, points, haversine)
		})
	}
}

func BenchmarkStream_Buffers(b *testing.B) {
	points := randomPoints(200)
	for _, buffer := range []int{1, 16, 256} {
		b.Run(fmt.Sprintf("buffer=%d", buffer), func(b *testing.B) {
			exec := mustExecutor(b, matrix.Stream, matrix.WithStreamBuffers(buffer, buffer))
			runExecutor(b, exec, points, haversine)
		})
	}
}

func BenchmarkProcess_Workers(b *testing.B) {
	points := randomPoints(60)
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			runExecutor(b, mustExecutor(b, matrix.Process, matrix.WithWorkers(workers)), points, haversine)
		})
	}
}

func BenchmarkFormulas(b *testing.B) {
	points := randomPoints(200)
	for _, f := range geo.Formulas() {
		b.Run(f.String(), func(b *testing.B) {
			runExecutor(b, mustExecutor(b, matrix.Sequential), points, geo.Calculator{Formula: f})
		})
	}
}

// BenchmarkPool_SubmitWait measures the pool's per-task overhead with no-op tasks.
func BenchmarkPool_SubmitWait(b *testing.B) {
	const batch = 1000
	noop := func(context.Context, int) error { return nil }

	for _, workers := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			ctx := context.Background()
			p := pool.New(pool.WithWorkerCount(workers), pool.WithTaskBuffer(256))
			if err := p.Start(ctx); err != nil {
				b.Fatal(err)
			}
			defer func() { _ = p.Shutdown(0) }()

			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				for range batch {
					if err := p.Submit(ctx, noop); err != nil {
						b.Fatal(err)
					}
				}
				if err := p.Wait(ctx); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(batch*b.N)/b.Elapsed().Seconds(), "tasks/s")
		})
	}
}
