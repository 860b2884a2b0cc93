// Package kmutex implements the kernel mutex: Normal, ErrorChecking and
// Recursive locking semantics under the None, PriorityInheritance and
// PriorityProtect protocols, grounded on
// original_source/source/synchronization/Mutex.cpp's tryLockInternal/
// lock/tryLock/unlock control flow and spec §4.G.
package kmutex

import (
	"sync"

	"github.com/distortec/gokernel/kerr"
	"github.com/distortec/gokernel/sched"
	"github.com/distortec/gokernel/thread"
	"github.com/distortec/gokernel/tick"
)

// Type selects how a thread that already owns the mutex is treated by a
// further lock attempt, mirroring distortos's Mutex::Type.
type Type uint8

const (
	// TypeNormal: re-locking by the owner deadlocks (returns busy, same
	// as any other contender, per Mutex.cpp's tryLockInternal falling
	// through to the final "return EBUSY").
	TypeNormal Type = iota
	// TypeErrorChecking: re-locking by the owner returns kerr.ErrDeadlock
	// immediately instead of blocking.
	TypeErrorChecking
	// TypeRecursive: re-locking by the owner increments a recursion
	// count, up to DefaultMaxRecursiveLocks, after which it returns
	// kerr.ErrAgain.
	TypeRecursive
)

// Protocol selects how the mutex affects its owner's effective priority
// while held, mirroring distortos's Mutex::Protocol.
type Protocol uint8

const (
	// ProtocolNone applies no priority adjustment.
	ProtocolNone Protocol = iota
	// ProtocolPriorityInheritance boosts the owner's effective priority
	// to the maximum of its own and every blocked waiter's, and cascades
	// through chains of held mutexes.
	ProtocolPriorityInheritance
	// ProtocolPriorityProtect rejects (at lock time) any attempt by a
	// thread whose effective priority exceeds the mutex's configured
	// ceiling, and otherwise boosts the owner to the ceiling for as long
	// as it holds the mutex.
	ProtocolPriorityProtect
)

// DefaultMaxRecursiveLocks bounds TypeRecursive's recursion counter, the
// same role distortos's Mutex::maxRecursiveLocks constant plays.
const DefaultMaxRecursiveLocks = 65535

// Mutex is the kernel mutex.
type Mutex struct {
	scheduler *sched.Scheduler
	waiters   *thread.List

	typ      Type
	protocol Protocol
	ceiling  thread.Priority
	maxLocks int

	mu        sync.Mutex
	owner     *thread.TCB
	recursion int
}

// New constructs a Mutex of the given type and protocol. ceiling is only
// consulted under ProtocolPriorityProtect.
func New(scheduler *sched.Scheduler, typ Type, protocol Protocol, ceiling thread.Priority) *Mutex {
	m := &Mutex{
		scheduler: scheduler,
		waiters:   thread.NewList(),
		typ:       typ,
		protocol:  protocol,
		ceiling:   ceiling,
		maxLocks:  DefaultMaxRecursiveLocks,
	}
	m.waiters.SetOwner(m)
	return m
}

// OnWaiterRepositioned implements thread.ListOwner. It is called whenever
// a thread already queued on m's waiter list is repositioned because its
// own EffectivePriority changed — typically a further priority-
// inheritance boost cascading down from a mutex that thread itself
// holds. m's DonatedPriority depends on its waiter list's front, so m's
// current owner must be recomputed in turn; that recompute may itself
// reposition the owner in a third mutex's waiter list, continuing the
// cascade. Grounded on spec.md §4.D's requirement that a priority-
// inheritance update "may cascade through a chain of PI mutexes owned by
// successive owners" — original_source's Mutex.cpp only ever reasons
// about a single owner/waiter pair, so this chaining is this package's
// own.
func (m *Mutex) OnWaiterRepositioned() {
	if m.protocol != ProtocolPriorityInheritance {
		return
	}
	m.mu.Lock()
	owner := m.owner
	m.mu.Unlock()
	if owner != nil {
		owner.RecomputeEffectivePriority()
	}
}

// DonatedPriority implements thread.PriorityDonor: while held under a
// boosting protocol, the mutex donates the greater of (for
// PriorityInheritance) the head waiter's effective priority, or (for
// PriorityProtect) its fixed ceiling. It does not take m.mu: the owner's
// TCB polls it from AddDonor/RemoveDonor, which doLock and Unlock call
// while already holding m.mu.
func (m *Mutex) DonatedPriority() (thread.Priority, bool) {
	if m.owner == nil {
		return 0, false
	}
	switch m.protocol {
	case ProtocolPriorityProtect:
		return m.ceiling, true
	case ProtocolPriorityInheritance:
		if head := m.waiters.Front(); head != nil {
			return head.EffectivePriority(), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// tryLockInternal is Mutex.cpp's tryLockInternal, translated: caller must
// hold m.mu.
func (m *Mutex) tryLockInternal(current *thread.TCB) error {
	if m.protocol == ProtocolPriorityProtect && current.EffectivePriority() > m.ceiling {
		return kerr.ErrInvalid
	}

	if m.owner == nil {
		m.doLock(current)
		return nil
	}

	if m.typ == TypeNormal {
		return kerr.ErrBusy
	}

	if m.owner == current {
		if m.typ == TypeErrorChecking {
			return kerr.ErrDeadlock
		}
		if m.typ == TypeRecursive {
			if m.recursion == m.maxLocks {
				return kerr.ErrAgain
			}
			m.recursion++
			return nil
		}
	}

	return kerr.ErrBusy
}

func (m *Mutex) doLock(current *thread.TCB) {
	m.owner = current
	m.recursion = 0
	if m.protocol != ProtocolNone {
		current.AddDonor(m)
	}
}

// TryLock attempts to lock the mutex without blocking. Returns
// kerr.ErrBusy if it is held by another thread, kerr.ErrDeadlock
// translated to kerr.ErrBusy (matching Mutex::tryLock's EDEADLK-to-EBUSY
// remap), kerr.ErrInvalid if the calling thread's priority exceeds a
// PriorityProtect ceiling, or kerr.ErrAgain if TypeRecursive's limit is
// reached.
func (m *Mutex) TryLock(current *thread.TCB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.tryLockInternal(current)
	if err == kerr.ErrDeadlock {
		return kerr.ErrBusy
	}
	return err
}

// Lock blocks until the mutex is acquired. Grounded on Mutex::lock's
// retry-on-EINTR loop: a signal delivery that interrupts the wait is
// retried, everything else (success, ErrDeadlock, ErrAgain) returns
// immediately.
func (m *Mutex) Lock(current *thread.TCB) error {
	for {
		m.mu.Lock()
		err := m.tryLockInternal(current)
		if err != kerr.ErrBusy {
			m.mu.Unlock()
			return err
		}
		m.waiters.Insert(current)
		owner := m.owner
		m.mu.Unlock()
		if m.protocol == ProtocolPriorityInheritance && owner != nil {
			owner.RecomputeEffectivePriority()
		}

		reason := m.scheduler.Block(current, m.waiters, thread.StateBlockedOnMutex)
		if reason != thread.UnblockInterrupted {
			// woken by a transfer or explicit unblock; tryLockInternal
			// above will confirm ownership (or, spuriously, retry).
			m.mu.Lock()
			if m.owner == current {
				m.mu.Unlock()
				return nil
			}
			m.mu.Unlock()
		}
	}
}

// LockUntil is Lock with a deadline, returning kerr.ErrTimedOut if it
// elapses first. Grounded on Mutex::tryLockUntil.
func (m *Mutex) LockUntil(current *thread.TCB, deadline tick.Point) error {
	for {
		m.mu.Lock()
		err := m.tryLockInternal(current)
		if err != kerr.ErrBusy {
			m.mu.Unlock()
			return err
		}
		m.waiters.Insert(current)
		owner := m.owner
		m.mu.Unlock()
		if m.protocol == ProtocolPriorityInheritance && owner != nil {
			owner.RecomputeEffectivePriority()
		}

		reason := m.scheduler.BlockUntil(current, m.waiters, thread.StateBlockedOnMutex, deadline)
		switch reason {
		case thread.UnblockTimeout:
			// current has left the waiter list; drop any boost it gave.
			if m.protocol == ProtocolPriorityInheritance {
				m.mu.Lock()
				owner := m.owner
				m.mu.Unlock()
				if owner != nil {
					owner.RecomputeEffectivePriority()
				}
			}
			return kerr.ErrTimedOut
		case thread.UnblockNormal:
			m.mu.Lock()
			owned := m.owner == current
			m.mu.Unlock()
			if owned {
				return nil
			}
		}
	}
}

// Unlock releases the mutex. Only the owner may call it; any other
// caller gets kerr.ErrNotPermitted. For TypeRecursive with a nonzero
// recursion count, decrements and returns without releasing ownership.
func (m *Mutex) Unlock(current *thread.TCB) error {
	m.mu.Lock()

	if m.owner != current {
		m.mu.Unlock()
		return kerr.ErrNotPermitted
	}

	if m.typ == TypeRecursive && m.recursion != 0 {
		m.recursion--
		m.mu.Unlock()
		return nil
	}

	if m.protocol != ProtocolNone {
		current.RemoveDonor(m)
	}

	next := m.waiters.PopFront()
	if next == nil {
		m.owner = nil
		m.recursion = 0
		m.mu.Unlock()
		return nil
	}

	m.owner = next
	m.recursion = 0
	if m.protocol != ProtocolNone {
		next.AddDonor(m)
	}
	m.mu.Unlock()

	m.scheduler.Unblock(next, thread.UnblockNormal)
	return nil
}
