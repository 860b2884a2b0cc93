package ksignal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distortec/gokernel/arch"
	"github.com/distortec/gokernel/kerr"
	"github.com/distortec/gokernel/sched"
	"github.com/distortec/gokernel/thread"
	"github.com/distortec/gokernel/tick"
)

func TestGenerateCoalescesPendingBit(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	a := thread.NewTCB("a", 1, thread.PolicyFIFO, nil)
	s.Add(a)

	r := NewReceiver(s, nil, a)
	var got []uint8
	_, err := r.SetAssociation(5, Action{Handler: func(info Info) { got = append(got, info.Number) }})
	require.NoError(t, err)

	// With signal 5 masked, both generations stay pending and coalesce
	// into the single pending bit; unmasking delivers it exactly once.
	require.NoError(t, r.SetMask(Set(0).With(5)))
	require.NoError(t, r.Generate(5))
	require.NoError(t, r.Generate(5))
	require.NoError(t, r.SetMask(0))
	assert.Equal(t, []uint8{5}, got)
}

func TestQueuePreservesMultipleInstancesAndPayload(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	a := thread.NewTCB("a", 1, thread.PolicyFIFO, nil)
	s.Add(a)

	r := NewReceiver(s, nil, a)
	var payloads []any
	_, err := r.SetAssociation(7, Action{Handler: func(info Info) { payloads = append(payloads, info.Payload) }})
	require.NoError(t, err)

	require.NoError(t, r.Queue(7, "first"))
	require.NoError(t, r.Queue(7, "second"))
	assert.Equal(t, []any{"first", "second"}, payloads)
}

func TestQueueOverflowsAtBound(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	a := thread.NewTCB("a", 1, thread.PolicyFIFO, nil)
	s.Add(a)

	r := NewReceiver(s, nil, a)
	r.maxQueued = 1
	require.NoError(t, r.Queue(3, nil))
	assert.ErrorIs(t, r.Queue(3, nil), kerr.ErrAgain)
}

func TestSetAssociationMergesIdenticalHandlerAndMask(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	a := thread.NewTCB("a", 1, thread.PolicyFIFO, nil)
	s.Add(a)

	r := NewReceiver(s, nil, a)
	handler := func(Info) {}
	action := Action{Handler: handler, Mask: Set(0).With(2)}

	_, err := r.SetAssociation(1, action)
	require.NoError(t, err)
	_, err = r.SetAssociation(2, action)
	require.NoError(t, err)

	assert.Len(t, r.associations, 1, "identical (handler, mask) associations should share one slot")
}

func TestSetAssociationBoundedReturnsErrAgain(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	a := thread.NewTCB("a", 1, thread.PolicyFIFO, nil)
	s.Add(a)

	r := NewReceiver(s, nil, a)
	r.maxAssociations = 1

	_, err := r.SetAssociation(1, Action{Handler: func(Info) {}})
	require.NoError(t, err)
	_, err = r.SetAssociation(2, Action{Handler: func(Info) {}})
	assert.ErrorIs(t, err, kerr.ErrAgain)
}

func TestSetAssociationDefaultClearsSlot(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	a := thread.NewTCB("a", 1, thread.PolicyFIFO, nil)
	s.Add(a)

	r := NewReceiver(s, nil, a)
	handler := func(Info) {}
	previous, err := r.SetAssociation(4, Action{Handler: handler})
	require.NoError(t, err)
	assert.True(t, previous.isDefault())

	previous, err = r.SetAssociation(4, Action{})
	require.NoError(t, err)
	assert.False(t, previous.isDefault())
	assert.Empty(t, r.associations)
}

func TestSetMaskUnblocksPendingSignalAndTriggersDelivery(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	a := thread.NewTCB("a", 1, thread.PolicyFIFO, nil)
	s.Add(a)

	r := NewReceiver(s, nil, a)
	var delivered bool
	_, err := r.SetAssociation(9, Action{Handler: func(Info) { delivered = true }})
	require.NoError(t, err)

	require.NoError(t, r.SetMask(Set(0).With(9)))
	require.NoError(t, r.Generate(9))
	assert.False(t, delivered, "signal 9 is masked, handler must not run yet")

	require.NoError(t, r.SetMask(0))
	assert.True(t, delivered, "unmasking should trigger delivery of the now-unblocked pending signal")
}

func TestWaitReturnsSignalGeneratedWhileBlocked(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	low := thread.NewTCB("low", 5, thread.PolicyFIFO, nil)
	s.Add(low)

	r := NewReceiver(s, nil, low)

	done := make(chan Info, 1)
	errc := make(chan error, 1)
	go func() {
		info, err := r.Wait(low, 0)
		errc <- err
		done <- info
	}()
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, r.Generate(3))

	select {
	case err := <-errc:
		require.NoError(t, err)
		info := <-done
		assert.Equal(t, uint8(3), info.Number)
	case <-time.After(time.Second):
		t.Fatal("Wait never returned")
	}
}

func TestNotifyRequestsFunctionExecutionForOtherThread(t *testing.T) {
	s := sched.New(nil, &tick.Clock{}, 3)
	current := thread.NewTCB("current", 9, thread.PolicyFIFO, nil)
	target := thread.NewTCB("target", 1, thread.PolicyFIFO, nil)
	s.Add(current)
	s.Add(target)

	port := arch.NewHostPort()
	buffer := make([]byte, 64)
	sp, err := port.InitializeStack(buffer, func() {})
	require.NoError(t, err)

	r := NewReceiver(s, port, target)
	r.SetStackPointer(sp)
	port.RegisterStack(sp, func(fn func()) error {
		fn()
		return nil
	})

	var delivered bool
	_, err = r.SetAssociation(2, Action{Handler: func(Info) { delivered = true }})
	require.NoError(t, err)

	require.NoError(t, r.Generate(2))
	assert.True(t, delivered, "RequestFunctionExecution should have run deliver on target's registered hook")
}
