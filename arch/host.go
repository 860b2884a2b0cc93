package arch

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/distortec/gokernel/fatal"
	"github.com/distortec/gokernel/kerr"
)

// HostPort is the default Port implementation: a goroutine-hosted stand-in
// for real register save/restore. It does not itself run thread bodies —
// package kthread owns the goroutine that executes a thread's runner — it
// only tracks enough bookkeeping to make InitializeStack, RequestFunction
// Execution and IsInInterruptContext behave the way a real port's would:
//
//   - InitializeStack hands back an address inside buffer, satisfying the
//     same bounds invariant kstack.Stack enforces on a real target, without
//     needing to encode a real register frame (there is nothing that will
//     ever jump to it).
//   - RequestFunctionExecution is backed by a registry of per-stack
//     "delivery hooks" that kthread installs when it starts a thread;
//     this is how signal delivery (ksignal) reaches a thread that isn't
//     currently running.
//   - IsInInterruptContext reflects an explicit enter/exit pair the
//     scheduler's tick interrupt handler calls around its own body.
type HostPort struct {
	mu      sync.Mutex
	hooks   map[uintptr]func(fn func()) error
	current atomic.Uintptr
	irq     atomic.Int32
	pending atomic.Bool
}

// NewHostPort constructs a ready-to-use HostPort.
func NewHostPort() *HostPort {
	return &HostPort{hooks: make(map[uintptr]func(fn func()) error)}
}

// InitializeStack returns the address of buffer's first byte as the
// initial stack pointer after validating there is room for a frame. The
// runner is not stored: HostPort never calls it itself, it exists purely
// so the Port interface has the same shape a real architecture's would.
func (p *HostPort) InitializeStack(buffer []byte, runner func()) (uintptr, error) {
	_ = runner
	if len(buffer) < minFrameBytes {
		return 0, kerr.ErrNoSpace
	}
	return addrOf(buffer), nil
}

// RequestContextSwitch records that a context switch has been requested.
// The hosted cooperative scheduler (package sched's Checkpoint) consumes
// this via TakePending.
func (p *HostPort) RequestContextSwitch() {
	p.pending.Store(true)
}

// TakePending reports whether a context switch was requested since the
// last call, clearing the flag. Used only by the hosted scheduler loop;
// not part of the Port interface because a real ISR has no need to poll
// itself.
func (p *HostPort) TakePending() bool {
	return p.pending.CAS(true, false)
}

// RegisterStack installs the delivery hook used for stack pointer sp.
// kthread calls this once, right after a Stack successfully initializes.
func (p *HostPort) RegisterStack(sp uintptr, hook func(fn func()) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks[sp] = hook
}

// UnregisterStack removes the delivery hook for sp, called when a thread
// terminates.
func (p *HostPort) UnregisterStack(sp uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.hooks, sp)
}

// SetCurrent records which stack pointer belongs to the thread presently
// selected to run. Used only to detect the forbidden self-targeting case
// in RequestFunctionExecution.
func (p *HostPort) SetCurrent(sp uintptr) {
	p.current.Store(sp)
}

// RequestFunctionExecution looks up the hook registered for stackPointer
// and invokes it. If stackPointer belongs to the thread currently
// selected to run and this call is not itself happening from interrupt
// context, the request is self-targeting and is forbidden.
func (p *HostPort) RequestFunctionExecution(stackPointer uintptr, fn func()) error {
	if stackPointer == p.current.Load() && !p.IsInInterruptContext() {
		fatal.Error("arch/host.go", 0, "HostPort.RequestFunctionExecution",
			"self-targeting request_function_execution is forbidden")
	}
	p.mu.Lock()
	hook := p.hooks[stackPointer]
	p.mu.Unlock()
	if hook == nil {
		return kerr.ErrInvalid
	}
	return hook(fn)
}

// EnterInterrupt marks the calling goroutine's dispatch as running on
// behalf of an interrupt. sched.Scheduler.TickInterruptHandler pairs it
// with ExitInterrupt around its own body.
func (p *HostPort) EnterInterrupt() {
	p.irq.Inc()
}

// ExitInterrupt reverses EnterInterrupt.
func (p *HostPort) ExitInterrupt() {
	p.irq.Dec()
}

// IsInInterruptContext reports whether EnterInterrupt outnumbers
// ExitInterrupt right now.
func (p *HostPort) IsInInterruptContext() bool {
	return p.irq.Load() > 0
}

var _ Port = (*HostPort)(nil)
