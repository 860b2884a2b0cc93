// Package kthread implements the thread facade of spec §4.J: static and
// dynamic thread objects built on top of a thread.TCB, the goroutine that
// actually executes a thread's body, and the ThisThread namespace
// (thisthread.go) that forwards to the scheduler's notion of the
// currently running thread.
//
// Grounded on original_source/source/threads/ThreadCommon.cpp (join via
// an internal semaphore posted from the exit hook, generate_signal/
// queue_signal/get_pending_signal_set forwarding to the signals
// receiver) and original_source/source/threads/ThisThread.cpp.
package kthread

import (
	"sync"

	"github.com/distortec/gokernel/arch"
	"github.com/distortec/gokernel/kerr"
	"github.com/distortec/gokernel/ksem"
	"github.com/distortec/gokernel/ksignal"
	"github.com/distortec/gokernel/kstack"
	"github.com/distortec/gokernel/sched"
	"github.com/distortec/gokernel/thread"
)

// Thread is the Go analogue of distortos's ThreadCommon together with the
// static/dynamic Thread templates built on top of it: a TCB, its stack,
// its signals receiver, and the join semaphore, plus whichever of
// "embeds its stack storage" (static) or "owns a heap stack, optionally
// detachable" (dynamic) applies to this instance.
type Thread struct {
	scheduler *sched.Scheduler
	port      arch.Port
	tcb       *thread.TCB
	stack     *kstack.Stack
	signals   *ksignal.Receiver
	joinSem   *ksem.Semaphore

	mu       sync.Mutex
	dynamic  bool
	detached bool
	started  bool
	stackSP  uintptr
}

// New constructs a Thread whose body is fn, scheduled at priority under
// policy. stack backs the thread's execution context: pass
// kstack.NewOwning(size) for a dynamic thread (heap-allocated, eligible
// for Detach) or kstack.NewBorrowing(buffer) for a static thread whose
// storage is embedded by the caller. The thread is not runnable until
// Start is called.
func New(scheduler *sched.Scheduler, port arch.Port, name string, priority thread.Priority,
	policy thread.Policy, stack *kstack.Stack, dynamic bool, fn func()) *Thread {
	tcb := thread.NewTCB(name, priority, policy, fn)
	tcb.SetStack(stack)
	th := &Thread{
		scheduler: scheduler,
		port:      port,
		tcb:       tcb,
		stack:     stack,
		joinSem:   ksem.New(scheduler, 0, 1),
		dynamic:   dynamic,
	}
	th.signals = ksignal.NewReceiver(scheduler, port, tcb)
	registerThread(tcb, th)
	return th
}

// Start initializes the thread's stack frame and hands it to the
// scheduler, then spawns the goroutine that runs fn cooperatively under
// the scheduling baton. Returns the error InitializeStack/Initialize
// reported, if any; Start is a no-op (returning nil) if already called.
func (th *Thread) Start() error {
	th.mu.Lock()
	if th.started {
		th.mu.Unlock()
		return nil
	}
	th.started = true
	th.mu.Unlock()

	runner := th.tcb.Runner()
	if err := th.stack.Initialize(th.port, func() { th.runBody(runner) }); err != nil {
		return err
	}
	sp, _ := th.stack.StackPointer()
	th.stackSP = sp
	th.signals.SetStackPointer(sp)
	if hostPort, ok := th.port.(*arch.HostPort); ok {
		hostPort.RegisterStack(sp, func(fn func()) error {
			fn()
			return nil
		})
	}

	th.scheduler.Add(th.tcb)
	go th.run()
	return nil
}

// run is the goroutine body kthread owns per the package doc comment on
// arch.HostPort: it waits for the scheduling baton, runs the thread's
// body, then terminates the TCB and posts the join semaphore.
func (th *Thread) run() {
	th.scheduler.Checkpoint(th.tcb)
	th.tcb.Runner()()
	th.terminate()
}

// runBody exists only so Start's InitializeStack call (which, on a real
// Port, must be given the function that will actually execute at the
// synthesized program counter) and the goroutine-hosted run loop agree
// on what "the thread's body" means; on HostPort neither runner is ever
// invoked by the port itself.
func (th *Thread) runBody(fn thread.Runner) {
	fn()
}

func (th *Thread) terminate() {
	th.scheduler.Remove(th.tcb, func() {
		th.joinSem.Post()
		if hostPort, ok := th.port.(*arch.HostPort); ok {
			hostPort.UnregisterStack(th.stackSP)
		}
		unregisterThread(th.tcb)
	})
}

// Join blocks until the thread terminates, returning kerr.ErrDeadlock if
// the calling thread is this very thread, or kerr.ErrInvalid if the
// thread has been Detach-ed (a detached thread has no joiner).
func (th *Thread) Join(current *thread.TCB) error {
	if current == th.tcb {
		return kerr.ErrDeadlock
	}
	th.mu.Lock()
	detached := th.detached
	th.mu.Unlock()
	if detached {
		return kerr.ErrInvalid
	}
	for {
		err := th.joinSem.Wait(current)
		if err != kerr.ErrInterrupted {
			return err
		}
	}
}

// Detach marks a dynamic thread for self-destruction on exit instead of
// requiring Join. Returns kerr.ErrNotSupported for a static thread.
func (th *Thread) Detach() error {
	if !th.dynamic {
		return kerr.ErrNotSupported
	}
	th.mu.Lock()
	th.detached = true
	th.mu.Unlock()
	return nil
}

// GetPriority returns the thread's own (non-boosted) priority.
func (th *Thread) GetPriority() thread.Priority { return th.tcb.BasePriority() }

// GetEffectivePriority returns the priority the scheduler actually
// orders this thread by, including any priority-inheritance/-protect
// boost.
func (th *Thread) GetEffectivePriority() thread.Priority { return th.tcb.EffectivePriority() }

// SetPriority changes the thread's own priority. alwaysBehind is accepted
// for interface parity with spec §6's set_priority(p, always_behind) but
// has no observable effect here: this kernel's ready list always places
// a thread at the tail of its new priority group on a priority change
// (thread.List.Insert), matching distortos's alwaysBehind=true behavior
// unconditionally.
func (th *Thread) SetPriority(p thread.Priority, alwaysBehind bool) {
	_ = alwaysBehind
	th.tcb.SetBasePriority(p)
}

// GetPolicy returns the thread's scheduling policy.
func (th *Thread) GetPolicy() thread.Policy { return th.tcb.Policy() }

// GetState returns the thread's lifecycle state.
func (th *Thread) GetState() thread.State { return th.tcb.State() }

// GetIdentifier returns a stable identifier for the thread, still valid
// after the thread terminates (though no longer Valid() once the TCB is
// reused).
func (th *Thread) GetIdentifier() thread.Identifier { return thread.IdentifierOf(th.tcb) }

// GetStackSize returns the usable size of the thread's stack.
func (th *Thread) GetStackSize() int { return th.stack.Size() }

// GetStackHighWaterMark returns the largest-ever contiguous run of
// untouched stack bytes, a diagnostic for stack sizing.
func (th *Thread) GetStackHighWaterMark() int { return th.stack.HighWaterMark() }

// GenerateSignal sets signal n pending for this thread.
func (th *Thread) GenerateSignal(n uint8) error { return th.signals.Generate(n) }

// QueueSignal appends a (n, value) record to this thread's signal queue.
func (th *Thread) QueueSignal(n uint8, value any) error { return th.signals.Queue(n, value) }

// GetPendingSignalSet returns the set of signals currently pending
// (generated but not yet delivered).
func (th *Thread) GetPendingSignalSet() ksignal.Set { return th.signals.Pending() }

// SetSignalMask installs mask as this thread's signal mask.
func (th *Thread) SetSignalMask(mask ksignal.Set) error { return th.signals.SetMask(mask) }

// GetSignalMask returns this thread's current signal mask.
func (th *Thread) GetSignalMask() ksignal.Set { return th.signals.Mask() }

// SetAssociation installs action as this thread's handler for signal n,
// returning whatever was previously associated with it.
func (th *Thread) SetAssociation(n uint8, action ksignal.Action) (ksignal.Action, error) {
	return th.signals.SetAssociation(n, action)
}

// GetAssociation returns the handler currently associated with signal n.
func (th *Thread) GetAssociation(n uint8) (ksignal.Action, error) {
	return th.signals.GetAssociation(n)
}

// WaitForSignal blocks the calling thread (which must be this Thread)
// until a signal outside mask is pending or queued, returning it without
// running a handler.
func (th *Thread) WaitForSignal(mask ksignal.Set) (ksignal.Info, error) {
	return th.signals.Wait(th.tcb, mask)
}

// TCB exposes the underlying control block for packages (ksignal,
// kmutex, ksem) that take a *thread.TCB directly.
func (th *Thread) TCB() *thread.TCB { return th.tcb }

// ConfigureSignals overrides this thread's queued-signal and
// association-slot bounds; see ksignal.Receiver.SetLimits. Must be
// called before Start.
func (th *Thread) ConfigureSignals(maxQueued, maxAssociations int) {
	th.signals.SetLimits(maxQueued, maxAssociations)
}
