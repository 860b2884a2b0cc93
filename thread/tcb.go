// Package thread implements the kernel's thread control block and the
// intrusive, priority-ordered lists the scheduler and synchronization
// primitives use to track runnable, sleeping and blocked threads. It is
// the Go analogue of distortos's internal::ThreadControlBlock, the class
// original_source/source/threads/ThreadCommon.cpp and
// original_source/source/synchronization/Mutex.cpp operate on throughout
// (getPriority/setPriority/getEffectivePriority, priority-inheritance
// boosting) even though its own .cpp/.hpp did not survive retrieval into
// this pack; the accompanying sorted intrusive list machinery is
// generalized so that the same List type serves the scheduler's ready
// list, a Semaphore's or Mutex's waiter list, and a join target's waiter
// list alike.
package thread

import (
	"container/list"
	"sync/atomic"

	"github.com/distortec/gokernel/kstack"
)

// Runner is the function body a thread executes. It is called exactly
// once per thread and its return marks the thread StateTerminated, the
// same contract as distortos's threadRunner.cpp.
type Runner func()

// sequenceCounter hands out TCB sequence numbers so a stale Identifier can
// be told apart from a reused *TCB, mirroring the sequence-number
// comparison original_source/source/threads/ThreadIdentifier.cpp performs
// against its stored threadControlBlock_ before dereferencing it.
var sequenceCounter uint64

// TCB is a thread control block: the scheduler-visible state of one
// thread, independent of whether that thread is presently executing Go
// code. kthread.Thread wraps a *TCB together with the goroutine that
// actually runs Runner.
type TCB struct {
	sequence uint64

	Name string

	basePriority      Priority
	effectivePriority Priority
	policy            Policy
	state             State

	runner Runner
	stack  *kstack.Stack

	// boostedBy is the set of mutexes currently held by this thread that
	// are applying priority inheritance boosts, so EffectivePriority can
	// be recomputed when one of them is released. Grounded on the
	// boosting behavior original_source/source/synchronization/Mutex.cpp's
	// tryLockInternal drives on its owner; the original stores this list on
	// ThreadControlBlock itself, whose own source is not present in this
	// pack.
	boostedBy []PriorityDonor

	// element is this TCB's node in whichever List currently owns it, or
	// nil when the TCB is not presently queued anywhere (e.g. while
	// running).
	element *list.Element
	owner   *List

	// wait is the goroutine-parking handle for the current Block call,
	// nil whenever the thread is not presently blocked in the scheduler.
	wait *Wait

	// runToken is the baton the scheduler passes to whichever thread is
	// logically "current": a thread's goroutine only proceeds past a
	// Checkpoint call once its runToken has been released. It is
	// allocated once and reused for the thread's entire lifetime (a
	// buffered channel naturally supports repeated signal/consume
	// cycles).
	runToken *Wait

	// deadline and sleepElement back the scheduler's deadline-ordered
	// sleeping list; they are unrelated to element/owner above because a
	// thread blocked with BlockUntil is queued in both its priority wait
	// list and the sleeping list simultaneously.
	deadline     uint64
	hasDeadline  bool
	sleepElement *list.Element
}

// PriorityDonor is anything that can temporarily raise a thread's
// effective priority: a Mutex held under the priority-inheritance or
// priority-protect protocol. It is an interface so package thread does
// not need to import kmutex.
type PriorityDonor interface {
	// DonatedPriority returns the priority this donor is currently
	// contributing to its owner, or ok=false if it is not contributing
	// one right now.
	DonatedPriority() (p Priority, ok bool)
}

// NewTCB constructs a TCB in StateCreated. It is not yet owned by any
// List; the scheduler takes ownership via Add.
func NewTCB(name string, priority Priority, policy Policy, runner Runner) *TCB {
	return &TCB{
		sequence:          atomic.AddUint64(&sequenceCounter, 1),
		Name:              name,
		basePriority:      priority,
		effectivePriority: priority,
		policy:            policy,
		state:             StateCreated,
		runner:            runner,
		runToken:          NewWait(),
	}
}

// RunToken returns the thread's scheduling baton, used by sched.Scheduler
// to signal when this thread has become the logically current one.
func (t *TCB) RunToken() *Wait { return t.runToken }

// Sequence returns the TCB's sequence number, used by Identifier to
// detect a stale reference to a reused control block.
func (t *TCB) Sequence() uint64 { return t.sequence }

// Runner returns the thread's body.
func (t *TCB) Runner() Runner { return t.runner }

// Stack returns the thread's stack, or nil if SetStack has not been
// called yet (the thread has not been initialized onto a Port).
func (t *TCB) Stack() *kstack.Stack { return t.stack }

// SetStack attaches the kstack.Stack backing this thread's execution
// context, called once during thread creation.
func (t *TCB) SetStack(s *kstack.Stack) { t.stack = s }

// Unlink removes the TCB from whichever List currently owns it, if any.
// Used by the scheduler's unblock path, which does not itself know which
// wait list (mutex, semaphore, join) a blocked thread was queued on.
func (t *TCB) Unlink() {
	if t.owner != nil {
		t.owner.Remove(t)
	}
}

// BasePriority returns the priority the thread was created with or most
// recently had explicitly set, ignoring any priority-inheritance boost.
func (t *TCB) BasePriority() Priority { return t.basePriority }

// EffectivePriority returns the priority the scheduler actually uses to
// order this thread: the greater of BasePriority and every currently
// active PriorityDonor's donated priority.
func (t *TCB) EffectivePriority() Priority { return t.effectivePriority }

// Policy returns the thread's scheduling policy.
func (t *TCB) Policy() Policy { return t.policy }

// State returns the thread's lifecycle state.
func (t *TCB) State() State { return t.state }

// SetState updates the thread's lifecycle state. It does not move the TCB
// between lists; callers (sched.Scheduler, kmutex.Mutex, ksem.Semaphore)
// are responsible for list membership matching the new state.
func (t *TCB) SetState(s State) { t.state = s }

// SetBasePriority changes the thread's own priority and recomputes its
// effective priority. If the TCB is presently queued in a List, the List
// re-sorts it to its new position, the same observable effect
// ThreadCommon::setPriority documents ("the position in the thread list is
// adjusted") by forwarding to its own ThreadControlBlock::setPriority,
// whose repositioning logic is this package's own (the original is not
// present in this pack).
func (t *TCB) SetBasePriority(p Priority) {
	t.basePriority = p
	t.recomputeEffectivePriority()
}

// AddDonor registers a PriorityDonor (a mutex this thread now holds under
// a boosting protocol) and recomputes effective priority. Grounded on
// Mutex::tryLockInternal's call to boost the owner
// (original_source/source/synchronization/Mutex.cpp).
func (t *TCB) AddDonor(d PriorityDonor) {
	t.boostedBy = append(t.boostedBy, d)
	t.recomputeEffectivePriority()
}

// RemoveDonor reverses AddDonor, called when the mutex is unlocked.
func (t *TCB) RemoveDonor(d PriorityDonor) {
	for i, donor := range t.boostedBy {
		if donor == d {
			t.boostedBy = append(t.boostedBy[:i], t.boostedBy[i+1:]...)
			break
		}
	}
	t.recomputeEffectivePriority()
}

// Wait returns the thread's current goroutine-parking handle, or nil if
// it is not presently blocked.
func (t *TCB) Wait() *Wait { return t.wait }

// SetWait installs w as the thread's parking handle. Scheduler.Block
// calls this with a fresh Wait before parking the calling goroutine, and
// clears it (nil) once the thread resumes.
func (t *TCB) SetWait(w *Wait) { t.wait = w }

// Deadline returns the raw tick value this thread is sleeping until and
// whether BlockUntil set one.
func (t *TCB) Deadline() (uint64, bool) { return t.deadline, t.hasDeadline }

// SetDeadline records the tick value BlockUntil should wake this thread
// at. Clear with ClearDeadline once it leaves the sleeping list.
func (t *TCB) SetDeadline(d uint64) {
	t.deadline = d
	t.hasDeadline = true
}

// ClearDeadline removes the thread's deadline bookkeeping.
func (t *TCB) ClearDeadline() {
	t.deadline = 0
	t.hasDeadline = false
}

// SleepElement returns this thread's node in the scheduler's sleeping
// list, for use by sched's internal sorted container.
func (t *TCB) SleepElement() *list.Element { return t.sleepElement }

// SetSleepElement records this thread's node in the scheduler's sleeping
// list.
func (t *TCB) SetSleepElement(e *list.Element) { t.sleepElement = e }

// RecomputeEffectivePriority re-evaluates EffectivePriority against the
// thread's current set of PriorityDonors. Callers that mutate something a
// PriorityDonor's DonatedPriority depends on without going through
// AddDonor/RemoveDonor (for instance, a waiter list a donor inspects)
// must call this explicitly afterward — PriorityDonor is polled, not
// observed.
//
// If the recompute changes EffectivePriority and the thread is presently
// queued in a List, the List repositions it and, via ListOwner, notifies
// that List's own owner (if any) to recompute in turn — so a boost
// cascades through a chain of priority-inheritance mutexes: owner owes
// waiter, waiter is itself blocked owing a further owner, and so on.
// Recursion terminates because each hop only proceeds when the owner's
// EffectivePriority actually changed, and a valid program's mutex
// ownership graph is acyclic.
func (t *TCB) RecomputeEffectivePriority() {
	t.recomputeEffectivePriority()
}

func (t *TCB) recomputeEffectivePriority() {
	effective := t.basePriority
	for _, d := range t.boostedBy {
		if p, ok := d.DonatedPriority(); ok && p > effective {
			effective = p
		}
	}
	if effective == t.effectivePriority {
		return
	}
	t.effectivePriority = effective
	if t.owner != nil {
		t.owner.reposition(t)
	}
}
