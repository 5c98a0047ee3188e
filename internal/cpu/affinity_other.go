//go:build !linux

package cpu

import "runtime"

// Pin locks the calling goroutine to its OS thread. CPU binding is only
// implemented on linux; elsewhere the thread lock is the whole effect.
func Pin(workerID int) (release func(), err error) {
	_ = slot(workerID)
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}
