package kthread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distortec/gokernel/arch"
	"github.com/distortec/gokernel/kstack"
	"github.com/distortec/gokernel/sched"
	"github.com/distortec/gokernel/thread"
	"github.com/distortec/gokernel/tick"
)

func TestThisThreadGetPrioritySetPriority(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	a := thread.NewTCB("a", 5, thread.PolicyFIFO, nil)
	s.Add(a)

	nt := NewThisThread(s)
	assert.Equal(t, thread.Priority(5), nt.GetPriority())
	nt.SetPriority(7, false)
	assert.Equal(t, thread.Priority(7), nt.GetPriority())
}

func TestThisThreadGetIdentifierMatchesCurrent(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	a := thread.NewTCB("a", 5, thread.PolicyFIFO, nil)
	s.Add(a)

	nt := NewThisThread(s)
	assert.True(t, nt.GetIdentifier().Equal(thread.IdentifierOf(a)))
}

func TestThisThreadGetResolvesRegisteredThread(t *testing.T) {
	port := arch.NewHostPort()
	s := sched.New(port, &tick.Clock{}, 3)
	main := thread.NewTCB("main", 1, thread.PolicyFIFO, nil)
	s.Add(main)
	stack := kstack.NewOwning(256)
	done := make(chan struct{})
	var got *Thread
	worker := New(s, port, "worker", 5, thread.PolicyFIFO, stack, true, func() {
		got = NewThisThread(s).Get()
		close(done)
	})
	require.NoError(t, worker.Start())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker body never ran")
	}
	assert.Same(t, worker, got)

	require.NoError(t, worker.Join(main))
	nt := NewThisThread(s)
	// worker has terminated and unregistered itself; main is current and
	// was never wrapped in a Thread, so Get reports none.
	assert.Nil(t, nt.Get())
}

func TestThisThreadSleepForTimesOutOnTick(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	a := thread.NewTCB("a", 5, thread.PolicyFIFO, nil)
	s.Add(a)

	nt := NewThisThread(s)
	done := make(chan error, 1)
	go func() { done <- nt.SleepFor(1) }()
	time.Sleep(10 * time.Millisecond)

	s.TickInterruptHandler()
	s.TickInterruptHandler()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("SleepFor never returned")
	}
}

func TestThisThreadYieldReturnsAfterRescheduling(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 1)
	a := thread.NewTCB("a", 5, thread.PolicyRoundRobin, nil)
	b := thread.NewTCB("b", 5, thread.PolicyRoundRobin, nil)
	s.Add(a)
	s.Add(b)

	nt := NewThisThread(s)
	done := make(chan struct{})
	go func() {
		nt.Yield()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	s.TickInterruptHandler()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Yield never returned")
	}
}
