//go:build linux

package cpu

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin locks the calling goroutine to its OS thread and binds that thread to
// CPU workerID mod Count(). The returned release func unlocks the thread and
// must be deferred by the caller.
//
// On failure the goroutine is left unlocked and the error describes the
// rejected CPU.
func Pin(workerID int) (release func(), err error) {
	runtime.LockOSThread()

	cpuID := slot(workerID)
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	if err := unix.SchedSetaffinity(0, &mask); err != nil { // 0 = current thread
		runtime.UnlockOSThread()
		return func() {}, fmt.Errorf("pin worker %d to cpu %d: %w", workerID, cpuID, err)
	}

	return runtime.UnlockOSThread, nil
}
