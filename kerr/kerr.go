// Package kerr defines the kernel's error taxonomy.
//
// The kernel core never wraps errors with added context the way an
// application would: every blocking primitive returns one of a small,
// fixed set of sentinel values, mirroring the errno-style return codes of
// the distortos core this kernel reimplements. Callers compare with
// errors.Is.
package kerr

import "errors"

var (
	// ErrInvalid is returned for an out-of-range priority or signal number,
	// or a PriorityProtect lock attempted by a thread above the ceiling.
	ErrInvalid = errors.New("kerr: invalid argument")

	// ErrBusy is returned by a non-blocking try-operation that could not
	// complete immediately: try-lock on an owned normal mutex, try-wait on
	// an empty semaphore, a non-blocking join of a still-running thread.
	ErrBusy = errors.New("kerr: resource busy")

	// ErrTimedOut is returned when a timed wait's deadline elapses before
	// the wait is satisfied.
	ErrTimedOut = errors.New("kerr: timed out")

	// ErrDeadlock is returned when an error-checking mutex is relocked by
	// its owner, or a thread joins itself.
	ErrDeadlock = errors.New("kerr: deadlock would occur")

	// ErrAgain is returned when a recursive mutex's recursion count would
	// saturate, or a queued-signal queue is full.
	ErrAgain = errors.New("kerr: resource temporarily unavailable")

	// ErrOverflow is returned by a semaphore post at its maximum value.
	ErrOverflow = errors.New("kerr: semaphore at maximum value")

	// ErrNotPermitted is returned when a mutex is unlocked by a thread
	// that does not own it.
	ErrNotPermitted = errors.New("kerr: operation not permitted")

	// ErrNotSupported is returned when signals are requested on a thread
	// that has no signals receiver.
	ErrNotSupported = errors.New("kerr: not supported")

	// ErrNoSpace is returned when a stack is too small for the initial or
	// a synthesized frame.
	ErrNoSpace = errors.New("kerr: no space on stack")

	// ErrInterrupted is returned when a blocking call is woken by signal
	// delivery rather than by the event it was waiting for. Most public
	// wrappers retry on ErrInterrupted instead of returning it.
	ErrInterrupted = errors.New("kerr: interrupted by signal delivery")
)
