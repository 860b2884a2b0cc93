package thread

import "container/list"

// List is a priority-ordered queue of *TCB: highest EffectivePriority
// first, FIFO among threads sharing a priority (so PolicyRoundRobin can
// rotate a priority group by moving its front to its back). It plays the
// role distortos's estd::SortedIntrusiveList<ThreadControlBlock, ...>
// plays for the scheduler's ready list and every synchronization
// primitive's waiter list.
//
// A TCB belongs to at most one List at a time; Insert on a TCB already
// owned by a different List first removes it from that List.
type List struct {
	l *list.List

	owner ListOwner
}

// ListOwner lets a List's owning synchronization primitive learn when a
// queued thread was repositioned because its own EffectivePriority
// changed. kmutex.Mutex implements this on its waiters list so a
// priority-inheritance boost cascades: if L1 (blocked on M2, owned by
// L2) has its effective priority raised because a higher-priority
// thread just blocked on a mutex L1 holds, L1 is repositioned within
// M2's waiter list, and M2 must in turn recompute L2's effective
// priority — which may itself reposition L2 in a third mutex's waiter
// list, and so on through the chain of owners.
type ListOwner interface {
	// OnWaiterRepositioned is called after a queued thread's position in
	// the list changed due to an EffectivePriority update.
	OnWaiterRepositioned()
}

// SetOwner attaches the ListOwner to notify on reposition. Mutex waiter
// lists set this to themselves; lists with no priority-inheritance
// protocol (the scheduler's ready list, a semaphore's or join target's
// waiter list) leave it nil.
func (q *List) SetOwner(o ListOwner) {
	q.owner = o
}

// NewList constructs an empty List.
func NewList() *List {
	return &List{l: list.New()}
}

// Len returns the number of threads queued.
func (q *List) Len() int { return q.l.Len() }

// Insert adds t to the list, ordered after every thread with strictly
// greater or equal EffectivePriority and before every thread with lesser
// EffectivePriority — i.e. at the back of its priority group, preserving
// FIFO arrival order within the group.
func (q *List) Insert(t *TCB) {
	if t.owner != nil {
		t.owner.Remove(t)
	}
	var mark *list.Element
	for e := q.l.Front(); e != nil; e = e.Next() {
		if e.Value.(*TCB).effectivePriority < t.effectivePriority {
			mark = e
			break
		}
	}
	if mark == nil {
		t.element = q.l.PushBack(t)
	} else {
		t.element = q.l.InsertBefore(t, mark)
	}
	t.owner = q
}

// Remove takes t out of the list. It is a no-op if t is not currently in
// q.
func (q *List) Remove(t *TCB) {
	if t.owner != q || t.element == nil {
		return
	}
	q.l.Remove(t.element)
	t.element = nil
	t.owner = nil
}

// Front returns the highest-priority, earliest-queued thread, or nil if
// the list is empty. It does not remove the thread.
func (q *List) Front() *TCB {
	if e := q.l.Front(); e != nil {
		return e.Value.(*TCB)
	}
	return nil
}

// PopFront removes and returns Front(), or nil if the list is empty.
func (q *List) PopFront() *TCB {
	t := q.Front()
	if t != nil {
		q.Remove(t)
	}
	return t
}

// RotateFront moves the list's current front to the back of its own
// priority group, implementing the round-robin time-slice rotation
// distortos's Scheduler::maybeRequestContextSwitch drives from the tick
// interrupt. It is a no-op on lists of fewer than two threads.
func (q *List) RotateFront() {
	front := q.l.Front()
	if front == nil || front.Next() == nil {
		return
	}
	t := front.Value.(*TCB)
	mark := front.Next()
	for mark != nil && mark.Value.(*TCB).effectivePriority == t.effectivePriority {
		mark = mark.Next()
	}
	q.l.Remove(front)
	if mark == nil {
		t.element = q.l.PushBack(t)
	} else {
		t.element = q.l.InsertBefore(t, mark)
	}
}

// Each calls fn for every thread in priority order, front to back. fn
// must not mutate q.
func (q *List) Each(fn func(*TCB)) {
	for e := q.l.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*TCB))
	}
}

// Contains reports whether t is currently queued in q.
func (q *List) Contains(t *TCB) bool {
	return t.owner == q
}

// reposition re-sorts t after its EffectivePriority changed while queued.
// Called only from TCB.recomputeEffectivePriority.
func (q *List) reposition(t *TCB) {
	if t.owner != q {
		return
	}
	q.l.Remove(t.element)
	t.element = nil
	t.owner = nil
	q.Insert(t)
	if q.owner != nil {
		q.owner.OnWaiterRepositioned()
	}
}
