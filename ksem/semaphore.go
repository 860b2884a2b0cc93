// Package ksem implements the kernel counting semaphore, grounded on
// original_source/source/synchronization/Semaphore.cpp's post/
// tryWaitInternal/wait/tryWaitUntil control flow and spec §4.H.
package ksem

import (
	"sync"

	"github.com/distortec/gokernel/kerr"
	"github.com/distortec/gokernel/sched"
	"github.com/distortec/gokernel/thread"
	"github.com/distortec/gokernel/tick"
)

// Semaphore is a counting semaphore with an upper bound on its value,
// matching distortos's Semaphore.
type Semaphore struct {
	scheduler *sched.Scheduler
	waiters   *thread.List

	mu    sync.Mutex
	value uint
	max   uint
}

// New constructs a Semaphore with the given initial and maximum values.
func New(scheduler *sched.Scheduler, initial, max uint) *Semaphore {
	return &Semaphore{
		scheduler: scheduler,
		waiters:   thread.NewList(),
		value:     initial,
		max:       max,
	}
}

// Value returns the semaphore's current value.
func (s *Semaphore) Value() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Post increments the semaphore, or — if Semaphore.cpp's blockedList_ is
// non-empty — wakes the single highest-priority, earliest-queued waiter
// instead of incrementing at all (so a post handed directly to a waiter
// never touches value_, matching the original exactly). Returns
// kerr.ErrOverflow if the value is already at its maximum and there is no
// waiter to hand the post to.
func (s *Semaphore) Post() error {
	s.mu.Lock()
	if waiter := s.waiters.Front(); waiter != nil {
		s.mu.Unlock()
		s.scheduler.Unblock(waiter, thread.UnblockNormal)
		return nil
	}
	if s.value == s.max {
		s.mu.Unlock()
		return kerr.ErrOverflow
	}
	s.value++
	s.mu.Unlock()
	return nil
}

// tryWaitInternal is Semaphore.cpp's tryWaitInternal: caller must hold
// s.mu.
func (s *Semaphore) tryWaitInternal() error {
	if s.value == 0 {
		return kerr.ErrAgain
	}
	s.value--
	return nil
}

// TryWait attempts to decrement the semaphore without blocking, returning
// kerr.ErrBusy if the value is already zero.
func (s *Semaphore) TryWait() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tryWaitInternal(); err != nil {
		return kerr.ErrBusy
	}
	return nil
}

// Wait blocks until the semaphore can be decremented.
func (s *Semaphore) Wait(current *thread.TCB) error {
	s.mu.Lock()
	err := s.tryWaitInternal()
	if err != kerr.ErrAgain {
		s.mu.Unlock()
		return err
	}
	s.waiters.Insert(current)
	s.mu.Unlock()

	reason := s.scheduler.Block(current, s.waiters, thread.StateBlockedOnSemaphore)
	return reasonToError(reason)
}

// WaitUntil is Wait with a deadline, returning kerr.ErrTimedOut if it
// elapses first.
func (s *Semaphore) WaitUntil(current *thread.TCB, deadline tick.Point) error {
	s.mu.Lock()
	err := s.tryWaitInternal()
	if err != kerr.ErrAgain {
		s.mu.Unlock()
		return err
	}
	s.waiters.Insert(current)
	s.mu.Unlock()

	reason := s.scheduler.BlockUntil(current, s.waiters, thread.StateBlockedOnSemaphore, deadline)
	return reasonToError(reason)
}

func reasonToError(reason thread.UnblockReason) error {
	switch reason {
	case thread.UnblockTimeout:
		return kerr.ErrTimedOut
	case thread.UnblockInterrupted:
		return kerr.ErrInterrupted
	default:
		return nil
	}
}
