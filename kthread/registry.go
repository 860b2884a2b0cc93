package kthread

import (
	"sync"

	"github.com/distortec/gokernel/thread"
)

// byTCB maps a running thread's control block back to the Thread facade
// that owns it. distortos keeps this reverse link as a field directly on
// its thread control block; here it is kept out-of-line in a
// package-level map instead, since package thread must not import
// kthread.
var (
	registryMu sync.Mutex
	byTCB      = map[*thread.TCB]*Thread{}
)

func registerThread(t *thread.TCB, th *Thread) {
	registryMu.Lock()
	defer registryMu.Unlock()
	byTCB[t] = th
}

func unregisterThread(t *thread.TCB) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(byTCB, t)
}

// lookupThread returns the Thread facade owning t, or nil if t is not
// (or no longer) registered.
func lookupThread(t *thread.TCB) *Thread {
	registryMu.Lock()
	defer registryMu.Unlock()
	return byTCB[t]
}
