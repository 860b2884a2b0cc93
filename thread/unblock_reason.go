package thread

// UnblockReason tells whatever called Wait/Block why the wait ended,
// matching spec §4.F's failure model: a blocking kernel call must be able
// to distinguish a normal wakeup from a timeout from a signal-delivery
// interruption so it can translate the reason into the package's public
// error taxonomy (kerr.ErrTimedOut, kerr.ErrInterrupted).
type UnblockReason uint8

const (
	// UnblockNormal means something explicitly unblocked the thread:
	// a semaphore post, a mutex unlock transferring ownership, an
	// explicit Scheduler.Unblock call.
	UnblockNormal UnblockReason = iota
	// UnblockTimeout means the deadline passed to BlockUntil elapsed
	// before anything else woke the thread.
	UnblockTimeout
	// UnblockInterrupted means a pending signal delivery requested the
	// thread be woken early.
	UnblockInterrupted
)

// Wait is the goroutine-side half of a blocked thread: a notification
// channel a TCB parks on while queued on some wait list, and the reason
// last delivered through it. It is the hosted stand-in for what a real
// port accomplishes by simply not resuming the thread's stack until a
// context switch restores it — on a host, the "thread" is a Go goroutine
// that must actually park on something. Built on a buffered channel of
// capacity one, a Wait supports repeated Block/Release cycles, which is
// what lets a single instance serve as a TCB's long-lived run token in
// addition to its per-call block/unblock handshake.
type Wait struct {
	ch chan UnblockReason
}

// NewWait constructs a Wait ready for Block/Release cycles.
func NewWait() *Wait {
	return &Wait{ch: make(chan UnblockReason, 1)}
}

// Block parks the calling goroutine until Release is called, then
// returns the reason Release was called with.
func (w *Wait) Block() UnblockReason {
	return <-w.ch
}

// Release records reason and wakes whatever goroutine is parked in
// Block (or will wake the next one to call Block, if none is parked
// yet). A Release that arrives before anything else has consumed a
// prior one is dropped rather than queued.
func (w *Wait) Release(reason UnblockReason) {
	select {
	case w.ch <- reason:
	default:
	}
}
