// Package arch defines the architecture port: the narrow, stable surface
// the kernel core consumes from the platform layer (distortos calls this
// the "architecture" interface; original_source/include/distortos/
// architecture holds the equivalent C++ headers). One implementation is
// chosen per build target; the core never dispatches across architectures
// at runtime.
//
// The instruction sequence that actually saves and restores CPU registers
// is explicitly out of scope for this repository (spec §1 non-goals): a
// real target would implement Port with hand-written assembly trampolines
// the way distortos's ARMv6-M/ARMv7-M/ARMv8-M port does
// (original_source/source/architecture/ARM). HostPort, in host.go, is the
// stand-in this repository ships so the kernel core is fully testable
// without hardware.
package arch

// Port is the architecture contract of spec §4.A.
type Port interface {
	// InitializeStack writes an initial stack frame into buffer such that,
	// when the platform's restore sequence runs against the returned stack
	// pointer, the thread begins executing runner. Returns kerr.ErrNoSpace
	// if buffer is too small for the frame.
	InitializeStack(buffer []byte, runner func()) (stackPointer uintptr, err error)

	// RequestContextSwitch pends a deferred, lowest-priority context-switch
	// interrupt. Safe to call from any context.
	RequestContextSwitch()

	// RequestFunctionExecution arranges for fn to run on the stack
	// identified by stackPointer as soon as the kernel next resumes it.
	// stackPointer must be a value previously returned by InitializeStack
	// (or, for the currently running thread, its most recently saved stack
	// pointer). Calling this with the stack pointer of the currently
	// running thread, from that same thread, is forbidden and routes to
	// fatal.Error instead of returning an error.
	RequestFunctionExecution(stackPointer uintptr, fn func()) error

	// IsInInterruptContext reports whether the calling code is running on
	// behalf of an interrupt (the tick ISR or the context-switch ISR) as
	// opposed to in a thread's own context.
	IsInInterruptContext() bool
}

// minFrameBytes is the minimum buffer size any Port implementation in this
// repository needs to synthesize its smallest frame.
const minFrameBytes = 32
