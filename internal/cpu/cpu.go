// Package cpu pins pool workers to logical CPUs.
package cpu

import "runtime"

// Count returns the number of logical CPUs usable by the process.
func Count() int {
	return runtime.NumCPU()
}

// slot maps a worker id onto a CPU index.
func slot(workerID int) int {
	n := Count()
	if workerID < 0 {
		workerID = -workerID
	}
	return workerID % n
}
