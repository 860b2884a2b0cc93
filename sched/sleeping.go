package sched

import (
	"container/list"

	"github.com/distortec/gokernel/thread"
)

// sleepingList is the scheduler's deadline-ordered list of blocked
// threads waiting on a timeout, strictly monotonic on deadline with
// FIFO tie-breaks, per spec §4.F. It is independent of thread.List
// because a thread blocked via BlockUntil is simultaneously queued on its
// priority-ordered wait list (mutex/semaphore/join waiters) and here.
type sleepingList struct {
	l *list.List
}

func newSleepingList() *sleepingList {
	return &sleepingList{l: list.New()}
}

func (s *sleepingList) insert(t *thread.TCB, deadline uint64) {
	t.SetDeadline(deadline)
	var mark *list.Element
	for e := s.l.Front(); e != nil; e = e.Next() {
		if other, _ := e.Value.(*thread.TCB).Deadline(); other > deadline {
			mark = e
			break
		}
	}
	if mark == nil {
		t.SetSleepElement(s.l.PushBack(t))
	} else {
		t.SetSleepElement(s.l.InsertBefore(t, mark))
	}
}

func (s *sleepingList) remove(t *thread.TCB) {
	if e := t.SleepElement(); e != nil {
		s.l.Remove(e)
		t.SetSleepElement(nil)
	}
	t.ClearDeadline()
}

func (s *sleepingList) front() *thread.TCB {
	if e := s.l.Front(); e != nil {
		return e.Value.(*thread.TCB)
	}
	return nil
}
