package kthread

import (
	"runtime"

	"github.com/distortec/gokernel/kerr"
	"github.com/distortec/gokernel/sched"
	"github.com/distortec/gokernel/thread"
	"github.com/distortec/gokernel/tick"
)

// ThisThread forwards to the scheduler's notion of the currently running
// thread, the Go analogue of distortos's ThisThread namespace
// (original_source/source/threads/ThisThread.cpp). Unlike the original,
// which reaches a single global scheduler, this type is bound to one
// explicitly — this kernel never hides a Scheduler behind a package-level
// singleton, the same choice kmutex/ksem/ksignal make.
type ThisThread struct {
	scheduler *sched.Scheduler
}

// NewThisThread binds a ThisThread namespace to scheduler.
func NewThisThread(scheduler *sched.Scheduler) ThisThread {
	return ThisThread{scheduler: scheduler}
}

// Get returns the Thread facade for the calling thread, or nil if the
// current TCB was never wrapped in one (only possible for a raw TCB added
// directly to the scheduler by a test, bypassing kthread.New).
func (n ThisThread) Get() *Thread {
	return lookupThread(n.scheduler.Current())
}

// GetIdentifier returns the calling thread's identifier.
func (n ThisThread) GetIdentifier() thread.Identifier {
	return thread.IdentifierOf(n.scheduler.Current())
}

// GetPriority returns the calling thread's own (non-boosted) priority.
func (n ThisThread) GetPriority() thread.Priority {
	return n.scheduler.Current().BasePriority()
}

// GetEffectivePriority returns the calling thread's scheduling priority,
// including any inheritance/protect boost.
func (n ThisThread) GetEffectivePriority() thread.Priority {
	return n.scheduler.Current().EffectivePriority()
}

// SetPriority changes the calling thread's own priority.
func (n ThisThread) SetPriority(p thread.Priority, alwaysBehind bool) {
	_ = alwaysBehind
	n.scheduler.Current().SetBasePriority(p)
}

// Yield voluntarily gives up the remainder of the calling thread's time
// slice, returning once it holds the scheduling baton again.
func (n ThisThread) Yield() {
	n.scheduler.Yield(n.scheduler.Current())
}

// Exit terminates the calling thread. Like distortos's ThisThread::exit,
// it never returns to its caller: the remainder of the calling
// goroutine's stack is unwound via runtime.Goexit after the TCB is
// removed from the scheduler and the join semaphore posted.
func (n ThisThread) Exit() {
	current := n.scheduler.Current()
	if th := lookupThread(current); th != nil {
		th.terminate()
	}
	runtime.Goexit()
}

// SleepFor blocks the calling thread for at least duration ticks,
// matching ThisThread.cpp's sleepFor(duration) = sleepUntil(now +
// duration + 1): the extra tick guarantees the calling thread sleeps for
// the full requested duration even if it is woken right at a tick
// boundary. Returns kerr.ErrInterrupted if signal delivery wakes the
// thread early.
func (n ThisThread) SleepFor(duration tick.Duration) error {
	return n.SleepUntil(n.scheduler.Now().Add(duration + 1))
}

// SleepUntil blocks the calling thread until deadline, returning nil once
// it elapses (a timeout is exactly the successful outcome of a sleep) or
// kerr.ErrInterrupted if signal delivery wakes the thread early.
func (n ThisThread) SleepUntil(deadline tick.Point) error {
	current := n.scheduler.Current()
	sleepingList := thread.NewList()
	reason := n.scheduler.BlockUntil(current, sleepingList, thread.StateSleeping, deadline)
	return sleepReasonToError(reason)
}

func sleepReasonToError(reason thread.UnblockReason) error {
	switch reason {
	case thread.UnblockTimeout, thread.UnblockNormal:
		return nil
	default:
		return kerr.ErrInterrupted
	}
}
