// Package ksignal implements the kernel's per-thread signal delivery
// machinery: pending (generated) signals, a bounded queue of payload-
// carrying (queued) signals, per-signal handler associations, and the
// asynchronous delivery routine that runs a thread's handlers either on
// its own return from a kernel call or via the architecture port's
// function-execution request when another thread generates the signal.
// Grounded on
// original_source/source/synchronization/SignalsCatcherControlBlock.cpp
// and spec §4.I.
package ksignal

import (
	"reflect"
	"sync"

	"github.com/distortec/gokernel/arch"
	"github.com/distortec/gokernel/kerr"
	"github.com/distortec/gokernel/sched"
	"github.com/distortec/gokernel/thread"
)

// Info is the payload delivered to a signal handler: the signal number
// and, for a queued signal, the value passed to Queue.
type Info struct {
	Number  uint8
	Payload any
}

// Handler is a signal handler function, called synchronously from
// deliver with the accepted signal's Info.
type Handler func(Info)

// Action pairs a handler with the signal mask to install (in addition to
// the signal itself) for the duration of the handler's execution,
// mirroring distortos's SignalAction.
type Action struct {
	Handler Handler
	Mask    Set
}

// isDefault reports whether a is the "default action" (ignore), the zero
// Action.
func (a Action) isDefault() bool { return a.Handler == nil }

// sameAction reports whether a and b share the same mask and handler.
// Handler is a func value and so is not comparable with ==; reflect is
// used to compare the underlying function pointers instead, matching
// distortos's pointer-equality comparison of its SignalAction handlers.
func sameAction(a, b Action) bool {
	if a.Mask != b.Mask {
		return false
	}
	if a.Handler == nil || b.Handler == nil {
		return a.Handler == nil && b.Handler == nil
	}
	return reflect.ValueOf(a.Handler).Pointer() == reflect.ValueOf(b.Handler).Pointer()
}

type queuedEntry struct {
	number  uint8
	payload any
}

type associationSlot struct {
	set    Set
	action Action
}

// DefaultMaxQueued bounds the number of outstanding queued-signal records
// per Receiver.
const DefaultMaxQueued = 8

// DefaultMaxAssociations bounds the number of distinct (handler, mask)
// association slots per Receiver, mirroring distortos's compile-time K.
const DefaultMaxAssociations = 8

// Receiver is one thread's signal state: its mask, pending set, queued
// signals and handler associations, plus the scheduling/delivery
// machinery to wake or interrupt its owner.
type Receiver struct {
	scheduler *sched.Scheduler
	port      arch.Port
	owner     *thread.TCB

	maxQueued       int
	maxAssociations int

	mu              sync.Mutex
	mask            Set
	pending         Set
	queue           []queuedEntry
	associations    []associationSlot
	deliveryPending bool
	stackPointer    uintptr
	hasStackPointer bool
}

// NewReceiver constructs a Receiver for owner. port may be nil, in which
// case a signal generated for a thread that is neither blocked on
// signals nor currently running is delivered synchronously by the
// calling goroutine instead of being handed to
// arch.Port.RequestFunctionExecution — acceptable for tests that only
// exercise the pending/queue/association bookkeeping.
func NewReceiver(scheduler *sched.Scheduler, port arch.Port, owner *thread.TCB) *Receiver {
	return &Receiver{
		scheduler:       scheduler,
		port:            port,
		owner:           owner,
		maxQueued:       DefaultMaxQueued,
		maxAssociations: DefaultMaxAssociations,
	}
}

// SetLimits overrides the default queued-signal and association-slot
// bounds. Intended to be called once, right after NewReceiver, before
// the receiver is exposed to any other goroutine.
func (r *Receiver) SetLimits(maxQueued, maxAssociations int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxQueued = maxQueued
	r.maxAssociations = maxAssociations
}

// SetStackPointer records the stack pointer arch.Port.InitializeStack
// returned for owner, so a signal generated by another thread can be
// delivered via RequestFunctionExecution. kthread calls this once, right
// after initializing the thread's stack.
func (r *Receiver) SetStackPointer(sp uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stackPointer = sp
	r.hasStackPointer = true
}

// Mask returns the signal mask currently in effect.
func (r *Receiver) Mask() Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mask
}

// Pending returns the set of signals currently pending (generated but
// not yet accepted by delivery or Wait). It does not include queued
// signals, which carry payloads and so are not representable as a single
// bit each.
func (r *Receiver) Pending() Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// SetMask installs a new signal mask, per spec §4.I set_mask: if any
// pending or queued signal becomes unblocked as a result, delivery is
// requested immediately.
func (r *Receiver) SetMask(mask Set) error {
	r.mu.Lock()
	r.mask = mask
	unblocked := r.hasUnblockedLocked()
	r.mu.Unlock()
	if unblocked {
		return r.notify()
	}
	return nil
}

func (r *Receiver) hasUnblockedLocked() bool {
	if !r.pending.AndNot(r.mask).Empty() {
		return true
	}
	for _, e := range r.queue {
		if !r.mask.Contains(e.number) {
			return true
		}
	}
	return false
}

// Generate sets n's pending bit (spec §4.I generate): redundant
// generations of an already-pending signal coalesce into the single bit.
func (r *Receiver) Generate(n uint8) error {
	if n > MaxSignalNumber {
		return kerr.ErrInvalid
	}
	r.mu.Lock()
	r.pending = r.pending.With(n)
	r.mu.Unlock()
	return r.notify()
}

// Queue appends a (number, payload) record (spec §4.I queue): unlike
// Generate, multiple queued instances of the same signal number are
// preserved rather than coalesced. Returns kerr.ErrAgain if the queue is
// already at its bound.
func (r *Receiver) Queue(n uint8, payload any) error {
	if n > MaxSignalNumber {
		return kerr.ErrInvalid
	}
	r.mu.Lock()
	if len(r.queue) >= r.maxQueued {
		r.mu.Unlock()
		return kerr.ErrAgain
	}
	r.queue = append(r.queue, queuedEntry{number: n, payload: payload})
	r.mu.Unlock()
	return r.notify()
}

// notify implements spec §4.I's delivery-targeting rule: if the owner is
// blocked specifically waiting on signals, wake it with reason=signal; if
// the owner is the currently running thread, run the delivery routine
// directly; otherwise request the architecture port run it on the
// owner's own stack the next time it resumes.
func (r *Receiver) notify() error {
	if r.owner.State() == thread.StateBlockedOnSignal {
		r.scheduler.Unblock(r.owner, thread.UnblockInterrupted)
		return nil
	}
	if r.scheduler.Current() == r.owner {
		r.deliver()
		return nil
	}
	r.mu.Lock()
	sp, ok := r.stackPointer, r.hasStackPointer
	r.mu.Unlock()
	if r.port == nil || !ok {
		r.deliver()
		return nil
	}
	return r.port.RequestFunctionExecution(sp, r.deliver)
}

// deliver is the delivery routine of spec §4.I: while (pending|queued) &
// ~mask is non-empty, accepts the lowest-numbered such signal, looks up
// its association, and — if one with a handler exists — runs the handler
// with that signal (and the association's mask) added to the mask for
// the duration. The deliveryPending flag prevents reentrant delivery, the
// same role distortos's deliveryIsPending_ plays.
func (r *Receiver) deliver() {
	r.mu.Lock()
	if r.deliveryPending {
		r.mu.Unlock()
		return
	}
	r.deliveryPending = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.deliveryPending = false
		r.mu.Unlock()
	}()

	for {
		n, info, ok := r.acceptNext()
		if !ok {
			return
		}
		r.mu.Lock()
		action, found := r.lookupLocked(n)
		if !found || action.isDefault() {
			r.mu.Unlock()
			continue
		}
		saved := r.mask
		r.mask = r.mask.Or(action.Mask).With(n)
		r.mu.Unlock()

		action.Handler(info)

		r.mu.Lock()
		r.mask = saved
		r.mu.Unlock()
	}
}

// acceptNext picks the lowest-numbered unmasked signal that is pending or
// queued, preferring the pending (generated) bit over a queued entry of
// the same number, and removes it atomically.
func (r *Receiver) acceptNext() (uint8, Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for n := uint8(0); n <= MaxSignalNumber; n++ {
		if r.mask.Contains(n) {
			continue
		}
		if r.pending.Contains(n) {
			r.pending = r.pending.Without(n)
			return n, Info{Number: n}, true
		}
		for i, e := range r.queue {
			if e.number == n {
				r.queue = append(r.queue[:i], r.queue[i+1:]...)
				return n, Info{Number: n, Payload: e.payload}, true
			}
		}
	}
	return 0, Info{}, false
}

func (r *Receiver) lookupLocked(n uint8) (Action, bool) {
	for _, slot := range r.associations {
		if slot.set.Contains(n) {
			return slot.action, true
		}
	}
	return Action{}, false
}

// GetAssociation returns the handler currently associated with n, or the
// zero Action (default/ignore) if none is set.
func (r *Receiver) GetAssociation(n uint8) (Action, error) {
	if n > MaxSignalNumber {
		return Action{}, kerr.ErrInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	action, _ := r.lookupLocked(n)
	return action, nil
}

// SetAssociation installs action as the handler for signal n, returning
// whatever action was previously associated with it. Setting the default
// action (a zero Action) removes n from its current association,
// freeing the slot if it becomes empty; an existing association sharing
// action's exact (handler, mask) is extended to also cover n rather than
// allocating a new slot. Returns kerr.ErrAgain if no slot is free and n
// cannot be merged into an existing one.
func (r *Receiver) SetAssociation(n uint8, action Action) (Action, error) {
	if n > MaxSignalNumber {
		return Action{}, kerr.ErrInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.clearAssociationLocked(n)

	if action.isDefault() {
		return previous, nil
	}

	for i := range r.associations {
		if sameAction(r.associations[i].action, action) {
			r.associations[i].set = r.associations[i].set.With(n)
			return previous, nil
		}
	}

	if len(r.associations) >= r.maxAssociations {
		return Action{}, kerr.ErrAgain
	}
	r.associations = append(r.associations, associationSlot{set: Set(0).With(n), action: action})
	return previous, nil
}

func (r *Receiver) clearAssociationLocked(n uint8) Action {
	for i := range r.associations {
		if !r.associations[i].set.Contains(n) {
			continue
		}
		previous := r.associations[i].action
		r.associations[i].set = r.associations[i].set.Without(n)
		if r.associations[i].set.Empty() {
			r.associations = append(r.associations[:i], r.associations[i+1:]...)
		}
		return previous
	}
	return Action{}
}

// Wait blocks current (which must be owner) until a signal outside mask
// becomes pending or queued, then returns the accepted signal without
// running any handler — the synchronous signal-wait form, as distinct
// from the asynchronous handler-based delivery deliver implements.
func (r *Receiver) Wait(current *thread.TCB, mask Set) (Info, error) {
	waiters := thread.NewList()
	for {
		r.mu.Lock()
		saved := r.mask
		r.mask = mask
		r.mu.Unlock()

		_, info, ok := r.acceptNext()

		r.mu.Lock()
		r.mask = saved
		r.mu.Unlock()

		if ok {
			return info, nil
		}

		reason := r.scheduler.Block(current, waiters, thread.StateBlockedOnSignal)
		if reason != thread.UnblockInterrupted {
			return Info{}, kerr.ErrInterrupted
		}
	}
}
