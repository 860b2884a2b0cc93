package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distortec/gokernel/thread"
	"github.com/distortec/gokernel/tick"
)

func newTestScheduler() *Scheduler {
	return New(nil, &tick.Clock{}, 3)
}

func TestAddSelectsHighestPriorityAsCurrent(t *testing.T) {
	s := newTestScheduler()
	low := thread.NewTCB("low", 1, thread.PolicyFIFO, nil)
	high := thread.NewTCB("high", 5, thread.PolicyFIFO, nil)

	s.Add(low)
	assert.Equal(t, low, s.Current())

	s.Add(high)
	assert.Equal(t, high, s.Current())
}

func TestYieldRotatesPriorityGroupAndReturnsOnRescheduling(t *testing.T) {
	s := New(nil, &tick.Clock{}, 1)
	a := thread.NewTCB("a", 5, thread.PolicyRoundRobin, nil)
	b := thread.NewTCB("b", 5, thread.PolicyRoundRobin, nil)
	s.Add(a)
	s.Add(b)
	require.Equal(t, a, s.Current())

	done := make(chan struct{})
	go func() {
		s.Yield(a)
		close(done)
	}()

	// Yield(a) dispatches b immediately; a then parks in Checkpoint until
	// it is rescheduled. A single round-robin tick rotates [b, a] back to
	// [a, b] and hands the baton back to a.
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, b, s.Current())
	s.TickInterruptHandler()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Yield did not return once rescheduled")
	}
	assert.Equal(t, a, s.Current())
}

func TestBlockAndUnblockRoundTrip(t *testing.T) {
	s := newTestScheduler()
	a := thread.NewTCB("a", 5, thread.PolicyFIFO, nil)
	s.Add(a)
	require.Equal(t, a, s.Current())

	waiters := thread.NewList()
	reasonCh := make(chan thread.UnblockReason, 1)
	go func() {
		reasonCh <- s.Block(a, waiters, thread.StateBlockedOnSemaphore)
	}()

	// give the goroutine a moment to actually park
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, waiters.Len())
	assert.Equal(t, thread.StateBlockedOnSemaphore, a.State())

	s.Unblock(a, thread.UnblockNormal)

	select {
	case reason := <-reasonCh:
		assert.Equal(t, thread.UnblockNormal, reason)
	case <-time.After(time.Second):
		t.Fatal("Block did not return after Unblock")
	}
	assert.Equal(t, a, s.Current())
	assert.Equal(t, thread.StateRunnable, a.State())
}

func TestBlockUntilTimesOutViaTick(t *testing.T) {
	s := newTestScheduler()
	a := thread.NewTCB("a", 5, thread.PolicyFIFO, nil)
	s.Add(a)

	waiters := thread.NewList()
	reasonCh := make(chan thread.UnblockReason, 1)
	go func() {
		reasonCh <- s.BlockUntil(a, waiters, thread.StateSleeping, tick.Point(2))
	}()
	time.Sleep(10 * time.Millisecond)

	s.TickInterruptHandler() // tick 1, not yet due
	select {
	case <-reasonCh:
		t.Fatal("timed out too early")
	case <-time.After(20 * time.Millisecond):
	}

	s.TickInterruptHandler() // tick 2, due
	select {
	case reason := <-reasonCh:
		assert.Equal(t, thread.UnblockTimeout, reason)
	case <-time.After(time.Second):
		t.Fatal("BlockUntil did not time out")
	}
}

func TestTickInterruptHandlerRotatesRoundRobinAtQuantum(t *testing.T) {
	s := newTestScheduler()
	a := thread.NewTCB("a", 5, thread.PolicyRoundRobin, nil)
	b := thread.NewTCB("b", 5, thread.PolicyRoundRobin, nil)
	s.Add(a)
	s.Add(b)
	require.Equal(t, a, s.Current())

	s.TickInterruptHandler()
	s.TickInterruptHandler()
	assert.Equal(t, a, s.Current(), "quantum not yet exhausted")

	switched := s.TickInterruptHandler()
	assert.True(t, switched)
	assert.Equal(t, b, s.Current())
}

func TestRemoveTerminatesAndInvokesExitHook(t *testing.T) {
	s := newTestScheduler()
	a := thread.NewTCB("a", 5, thread.PolicyFIFO, nil)
	b := thread.NewTCB("b", 3, thread.PolicyFIFO, nil)
	s.Add(a)
	s.Add(b)
	require.Equal(t, a, s.Current())

	var hookCalled bool
	s.Remove(a, func() { hookCalled = true })

	assert.True(t, hookCalled)
	assert.Equal(t, thread.StateTerminated, a.State())
	assert.Equal(t, b, s.Current())
}

func TestSuspendAndResume(t *testing.T) {
	s := newTestScheduler()
	a := thread.NewTCB("a", 5, thread.PolicyFIFO, nil)
	b := thread.NewTCB("b", 3, thread.PolicyFIFO, nil)
	s.Add(a)
	s.Add(b)

	s.Suspend(a)
	assert.Equal(t, thread.StateSuspended, a.State())
	assert.Equal(t, b, s.Current())

	s.Resume(a)
	assert.Equal(t, thread.StateRunnable, a.State())
	assert.Equal(t, a, s.Current())
}
