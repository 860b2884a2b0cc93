package kthread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distortec/gokernel/arch"
	"github.com/distortec/gokernel/kerr"
	"github.com/distortec/gokernel/ksignal"
	"github.com/distortec/gokernel/kstack"
	"github.com/distortec/gokernel/sched"
	"github.com/distortec/gokernel/thread"
	"github.com/distortec/gokernel/tick"
)

func TestStartExecutesBodyAndJoinReturnsOnTermination(t *testing.T) {
	port := arch.NewHostPort()
	s := sched.New(port, &tick.Clock{}, 3)
	main := thread.NewTCB("main", 5, thread.PolicyFIFO, nil)
	s.Add(main)

	var ran bool
	done := make(chan struct{})
	stack := kstack.NewOwning(256)
	worker := New(s, port, "worker", 9, thread.PolicyFIFO, stack, true, func() {
		ran = true
		close(done)
	})

	require.NoError(t, worker.Start())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker body never ran")
	}
	assert.True(t, ran)

	require.NoError(t, worker.Join(main))
	assert.Equal(t, thread.StateTerminated, worker.GetState())
}

func TestJoinSelfReturnsDeadlock(t *testing.T) {
	port := arch.NewHostPort()
	s := sched.New(port, &tick.Clock{}, 3)
	stack := kstack.NewOwning(256)
	worker := New(s, port, "worker", 5, thread.PolicyFIFO, stack, true, func() {})

	assert.ErrorIs(t, worker.Join(worker.TCB()), kerr.ErrDeadlock)
}

func TestDetachOnStaticThreadUnsupported(t *testing.T) {
	port := arch.NewHostPort()
	s := sched.New(port, &tick.Clock{}, 3)
	stack := kstack.NewBorrowing(make([]byte, 256))
	worker := New(s, port, "worker", 5, thread.PolicyFIFO, stack, false, func() {})

	assert.ErrorIs(t, worker.Detach(), kerr.ErrNotSupported)
}

func TestDetachedThreadRejectsJoin(t *testing.T) {
	port := arch.NewHostPort()
	s := sched.New(port, &tick.Clock{}, 3)
	main := thread.NewTCB("main", 5, thread.PolicyFIFO, nil)
	s.Add(main)

	stack := kstack.NewOwning(256)
	done := make(chan struct{})
	worker := New(s, port, "worker", 9, thread.PolicyFIFO, stack, true, func() { close(done) })
	require.NoError(t, worker.Detach())
	require.NoError(t, worker.Start())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker body never ran")
	}

	assert.ErrorIs(t, worker.Join(main), kerr.ErrInvalid)
}

func TestSignalForwarding(t *testing.T) {
	port := arch.NewHostPort()
	s := sched.New(port, &tick.Clock{}, 3)
	main := thread.NewTCB("main", 5, thread.PolicyFIFO, nil)
	s.Add(main)

	stack := kstack.NewOwning(256)
	worker := New(s, port, "worker", 1, thread.PolicyFIFO, stack, true, func() {})

	// Mask signal 3 first so Generate's synchronous delivery (nothing is
	// running worker's own goroutine yet) leaves it pending instead of
	// discarding it as the default action.
	require.NoError(t, worker.SetSignalMask(ksignal.Set(0).With(3)))
	require.NoError(t, worker.GenerateSignal(3))
	assert.True(t, worker.GetPendingSignalSet().Contains(3))
}

func TestSetPriorityChangesBasePriority(t *testing.T) {
	port := arch.NewHostPort()
	s := sched.New(port, &tick.Clock{}, 3)
	stack := kstack.NewOwning(256)
	worker := New(s, port, "worker", 1, thread.PolicyFIFO, stack, true, func() {})

	worker.SetPriority(7, false)
	assert.Equal(t, thread.Priority(7), worker.GetPriority())
}
