// Package matrix computes the pairwise distance matrix of a set of labeled
// points.
//
// Every unordered pair of input points is measured exactly once. Five
// execution strategies produce the same set of records:
//
//   - Sequential measures pairs one after another in generation order.
//   - Threaded starts one goroutine per pair and collects results as they finish.
//   - Pooled feeds pairs to a fixed set of workers through a bounded queue.
//   - Process runs the measurements in child processes, one per worker.
//   - Stream runs a three-stage pipeline (read, pair, write) that pairs points
//     as they arrive, so output starts before input ends.
//
// Sequential and Stream return records in generation order. The concurrent
// strategies return them in completion order; use SortByGeneration when the
// order matters.
//
// Example:
//
//	exec, err := matrix.New(matrix.Pooled, matrix.WithWorkers(8))
//	if err != nil {
//		return err
//	}
//	records, err := exec.Execute(ctx, points, geo.Calculator{Formula: geo.Haversine})
package matrix
