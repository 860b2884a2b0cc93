package arch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distortec/gokernel/kerr"
)

func TestHostPortInitializeStackRejectsSmallBuffer(t *testing.T) {
	p := NewHostPort()
	_, err := p.InitializeStack(make([]byte, minFrameBytes-1), func() {})
	assert.ErrorIs(t, err, kerr.ErrNoSpace)
}

func TestHostPortInitializeStackReturnsAddressWithinBuffer(t *testing.T) {
	p := NewHostPort()
	buf := make([]byte, minFrameBytes)
	sp, err := p.InitializeStack(buf, func() {})
	require.NoError(t, err)
	assert.Equal(t, addrOf(buf), sp)
}

func TestHostPortRequestFunctionExecutionRunsRegisteredHook(t *testing.T) {
	p := NewHostPort()
	buf := make([]byte, minFrameBytes)
	sp, err := p.InitializeStack(buf, func() {})
	require.NoError(t, err)

	var ran bool
	p.RegisterStack(sp, func(fn func()) error {
		fn()
		return nil
	})

	err = p.RequestFunctionExecution(sp, func() { ran = true })
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestHostPortRequestFunctionExecutionUnknownStackReturnsInvalid(t *testing.T) {
	p := NewHostPort()
	err := p.RequestFunctionExecution(0x1234, func() {})
	assert.ErrorIs(t, err, kerr.ErrInvalid)
}

func TestHostPortRequestFunctionExecutionSelfTargetPanics(t *testing.T) {
	p := NewHostPort()
	buf := make([]byte, minFrameBytes)
	sp, err := p.InitializeStack(buf, func() {})
	require.NoError(t, err)
	p.RegisterStack(sp, func(fn func()) error { return nil })
	p.SetCurrent(sp)

	assert.Panics(t, func() {
		_ = p.RequestFunctionExecution(sp, func() {})
	})
}

func TestHostPortSelfTargetAllowedFromInterruptContext(t *testing.T) {
	p := NewHostPort()
	buf := make([]byte, minFrameBytes)
	sp, err := p.InitializeStack(buf, func() {})
	require.NoError(t, err)

	var ran bool
	p.RegisterStack(sp, func(fn func()) error {
		fn()
		return nil
	})
	p.SetCurrent(sp)

	p.EnterInterrupt()
	defer p.ExitInterrupt()
	err = p.RequestFunctionExecution(sp, func() { ran = true })
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestHostPortIsInInterruptContext(t *testing.T) {
	p := NewHostPort()
	assert.False(t, p.IsInInterruptContext())
	p.EnterInterrupt()
	assert.True(t, p.IsInInterruptContext())
	p.EnterInterrupt()
	p.ExitInterrupt()
	assert.True(t, p.IsInInterruptContext())
	p.ExitInterrupt()
	assert.False(t, p.IsInInterruptContext())
}

func TestHostPortRequestContextSwitchPendingIsOneShot(t *testing.T) {
	p := NewHostPort()
	assert.False(t, p.TakePending())
	p.RequestContextSwitch()
	assert.True(t, p.TakePending())
	assert.False(t, p.TakePending())
}

func TestHostPortUnregisterStackRemovesHook(t *testing.T) {
	p := NewHostPort()
	buf := make([]byte, minFrameBytes)
	sp, err := p.InitializeStack(buf, func() {})
	require.NoError(t, err)
	p.RegisterStack(sp, func(fn func()) error { return nil })
	p.UnregisterStack(sp)

	err = p.RequestFunctionExecution(sp, func() {})
	assert.ErrorIs(t, err, kerr.ErrInvalid)
}
