// Package sched implements the kernel scheduler: the single global
// authority over which thread is logically "current," grounded on
// distortos's internal::Scheduler (referenced throughout
// original_source/source/threads/ThreadCommon.cpp and
// original_source/source/synchronization/Mutex.cpp's calls into it) and
// forceContextSwitch.cpp for the "request a switch, then let it happen"
// pattern.
//
// distortos's Scheduler runs one thread at a time because it owns the
// only CPU core: a context-switch ISR physically stops the outgoing
// thread's instruction stream and starts the incoming one. Go gives this
// package no equivalent primitive — goroutines genuinely run
// concurrently and nothing can suspend one from the outside. Scheduler
// therefore layers a baton-passing protocol on top of its logical
// ready/sleeping/terminated bookkeeping: at any instant exactly one TCB
// holds the "current" baton (thread.TCB.RunToken), and every operation
// that can change who holds it (Add, Yield, Block, Unblock, the tick
// handler) recomputes the new holder under Scheduler's lock and releases
// their token. A thread's own goroutine cooperatively waits for its turn
// via Checkpoint wherever kthread places one — which means preemption
// only actually takes effect the next time the running thread calls back
// into the kernel (Checkpoint, Yield, a blocking call, or thread exit),
// not at an arbitrary instruction boundary the way a real target's timer
// interrupt achieves. This is a deliberate, documented limitation of
// hosting the scheduler's logic in portable Go rather than a gap in the
// translation.
package sched

import (
	"sync"

	"github.com/distortec/gokernel/arch"
	"github.com/distortec/gokernel/fatal"
	"github.com/distortec/gokernel/thread"
	"github.com/distortec/gokernel/tick"
)

// Scheduler is the kernel's single scheduling authority. The zero value
// is not usable; construct with New.
type Scheduler struct {
	mu sync.Mutex

	port  arch.Port
	clock *tick.Clock

	quantum   int
	rrCounter int

	ready      *thread.List
	suspended  *thread.List
	terminated *thread.List
	sleeping   *sleepingList

	current *thread.TCB
}

// New constructs a Scheduler. port may be nil (useful in tests that only
// exercise the logical state machine); quantum is the number of ticks a
// PolicyRoundRobin thread runs before being demoted to the tail of its
// priority group.
func New(port arch.Port, clock *tick.Clock, quantum int) *Scheduler {
	if quantum < 1 {
		quantum = 1
	}
	return &Scheduler{
		port:       port,
		clock:      clock,
		quantum:    quantum,
		ready:      thread.NewList(),
		suspended:  thread.NewList(),
		terminated: thread.NewList(),
		sleeping:   newSleepingList(),
	}
}

// Current returns the thread presently holding the scheduling baton, or
// nil if none has ever been scheduled.
func (s *Scheduler) Current() *thread.TCB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Now returns the scheduler's tick clock's current value, used by
// ThisThread.sleepFor/sleepUntil to compute an absolute deadline.
func (s *Scheduler) Now() tick.Point {
	return s.clock.Now()
}

// dispatch recomputes who should hold the baton from the ready list's
// front and, if it changed, requests a context switch and releases the
// new holder's run token. Callers must hold s.mu. Returns whether the
// current thread changed.
func (s *Scheduler) dispatch() bool {
	next := s.ready.Front()
	if next == s.current {
		return false
	}
	s.current = next
	if s.port != nil {
		s.port.RequestContextSwitch()
	}
	if next != nil {
		next.RunToken().Release(thread.UnblockNormal)
	}
	return true
}

// Add makes t runnable: spec §4.F add(tcb). It is inserted at the tail of
// its priority group in the ready list; if that makes it the new front,
// a context switch is requested. Add does not block its caller —
// matching distortos, where add() returns to the calling thread's own
// context and any resulting preemption happens asynchronously via the
// pended context-switch interrupt, not synchronously inside add() itself.
func (s *Scheduler) Add(t *thread.TCB) {
	s.mu.Lock()
	t.SetState(thread.StateRunnable)
	s.ready.Insert(t)
	s.dispatch()
	s.mu.Unlock()
}

// Checkpoint is the cooperative preemption point: it blocks the calling
// goroutine until t is (again) the thread holding the scheduling baton.
// kthread calls this on a thread's behalf between units of work so a
// higher-priority Add/Unblock actually takes effect; see the package
// doc comment for why this, rather than true asynchronous preemption, is
// the host's approximation of distortos's ISR-driven context switch.
func (s *Scheduler) Checkpoint(t *thread.TCB) {
	for {
		s.mu.Lock()
		if s.current == t {
			s.mu.Unlock()
			return
		}
		token := t.RunToken()
		s.mu.Unlock()
		token.Block()
	}
}

// Yield moves t, which must be the calling thread's own TCB and must
// presently be the current thread, to the tail of its priority group and
// requests a context switch, per spec §4.F yield(). Returns once t holds
// the baton again.
func (s *Scheduler) Yield(t *thread.TCB) {
	s.mu.Lock()
	if s.current != t {
		s.mu.Unlock()
		return
	}
	s.ready.RotateFront()
	s.dispatch()
	s.mu.Unlock()
	s.Checkpoint(t)
}

// Block implements spec §4.F block(list, state): removes t (the calling
// thread's own TCB, presently current) from the ready list, changes its
// state, and queues it on waiters in effective-priority order. It blocks
// the calling goroutine until something unblocks t, then waits for t to
// be rescheduled, and finally returns the reason the wait ended.
func (s *Scheduler) Block(t *thread.TCB, waiters *thread.List, state thread.State) thread.UnblockReason {
	s.mu.Lock()
	t.SetState(state)
	s.ready.Remove(t)
	waiters.Insert(t)
	w := thread.NewWait()
	t.SetWait(w)
	s.dispatch()
	s.mu.Unlock()

	reason := w.Block()
	t.SetWait(nil)
	s.Checkpoint(t)
	return reason
}

// BlockUntil implements spec §4.F block_until(list, state, deadline):
// like Block, but also queues t on the deadline-ordered sleeping list so
// the tick handler can time it out. Whichever completes first — an
// explicit Unblock or the deadline elapsing — removes t from both lists.
func (s *Scheduler) BlockUntil(t *thread.TCB, waiters *thread.List, state thread.State, deadline tick.Point) thread.UnblockReason {
	s.mu.Lock()
	t.SetState(state)
	s.ready.Remove(t)
	waiters.Insert(t)
	s.sleeping.insert(t, uint64(deadline))
	w := thread.NewWait()
	t.SetWait(w)
	s.dispatch()
	s.mu.Unlock()

	reason := w.Block()
	t.SetWait(nil)
	s.Checkpoint(t)
	return reason
}

// unblockLocked performs the removal/requeue half of spec §4.F unblock:
// takes t off whichever wait list and the sleeping list, if present, and
// puts it back on the ready list with reason recorded for the parked
// waiter. Callers must hold s.mu and must call dispatch afterward.
func (s *Scheduler) unblockLocked(t *thread.TCB, reason thread.UnblockReason) {
	t.Unlink()
	s.sleeping.remove(t)
	t.SetState(thread.StateRunnable)
	s.ready.Insert(t)
	if w := t.Wait(); w != nil {
		w.Release(reason)
	}
}

// Unblock implements spec §4.F unblock(iterator, reason=normal). Safe to
// call from any thread's context (not just the head of whatever waiter
// list t happens to be on).
func (s *Scheduler) Unblock(t *thread.TCB, reason thread.UnblockReason) {
	s.mu.Lock()
	s.unblockLocked(t, reason)
	s.dispatch()
	s.mu.Unlock()
}

// Remove implements spec §4.F remove(exit_hook): terminates t (which must
// be the calling thread's own, currently-current TCB), moves it to the
// terminated list, invokes exitHook (used by kthread to post the join
// semaphore), and forces a context switch. The calling goroutine does not
// resume kernel-managed execution afterward; kthread lets it return
// instead, the hosted equivalent of distortos's "never returns".
func (s *Scheduler) Remove(t *thread.TCB, exitHook func()) {
	s.mu.Lock()
	t.SetState(thread.StateTerminated)
	s.ready.Remove(t)
	s.terminated.Insert(t)
	s.mu.Unlock()

	if exitHook != nil {
		exitHook()
	}

	s.mu.Lock()
	s.dispatch()
	s.mu.Unlock()
}

// Suspend moves t off the ready list onto the suspended list regardless
// of any other block reason, and forces a reschedule if t was current.
func (s *Scheduler) Suspend(t *thread.TCB) {
	s.mu.Lock()
	t.Unlink()
	t.SetState(thread.StateSuspended)
	s.suspended.Insert(t)
	s.dispatch()
	s.mu.Unlock()
}

// Resume reverses Suspend, making t runnable again.
func (s *Scheduler) Resume(t *thread.TCB) {
	s.mu.Lock()
	t.Unlink()
	t.SetState(thread.StateRunnable)
	s.ready.Insert(t)
	s.dispatch()
	s.mu.Unlock()
}

// TickInterruptHandler implements spec §4.F tick_interrupt_handler():
// advances the clock, demotes the current round-robin thread's priority
// group position at the slice boundary, times out every sleeping thread
// whose deadline has elapsed, and reports whether a context switch is
// now needed.
func (s *Scheduler) TickInterruptHandler() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if irq, ok := s.port.(interface{ EnterInterrupt() }); ok {
		irq.EnterInterrupt()
		defer func() { s.port.(interface{ ExitInterrupt() }).ExitInterrupt() }()
	}

	now := s.clock.Advance()

	if s.current != nil && s.current.Policy() == thread.PolicyRoundRobin {
		s.rrCounter++
		if s.rrCounter >= s.quantum {
			s.rrCounter = 0
			s.ready.RotateFront()
		}
	} else {
		s.rrCounter = 0
	}

	for {
		head := s.sleeping.front()
		if head == nil {
			break
		}
		deadline, _ := head.Deadline()
		if tick.Point(deadline).Before(now) || tick.Point(deadline) == now {
			s.unblockLocked(head, thread.UnblockTimeout)
			continue
		}
		break
	}

	return s.dispatch()
}

// SwitchContext implements spec §4.F switch_context(current_sp): called
// from the context-switch ISR path with currentSP the stack pointer the
// outgoing thread was saved at. It is the one place a real architecture
// port's actual register-restore sequence would consume this package's
// bookkeeping; HostPort has no ISR of its own and reaches the same state
// entirely through Checkpoint, so only CortexMPort-style real ports are
// expected to call this.
func (s *Scheduler) SwitchContext(currentSP uintptr) uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.Stack() != nil {
		if !s.current.Stack().CheckStackPointer(currentSP) {
			fatal.Error("sched/scheduler.go", 0, "Scheduler.SwitchContext",
				"outgoing stack pointer out of range")
		}
		_ = s.current.Stack().Save(currentSP)
	}

	next := s.ready.Front()
	s.current = next
	if next == nil || next.Stack() == nil {
		return 0
	}
	sp, _ := next.Stack().StackPointer()
	return sp
}
