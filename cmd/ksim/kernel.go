// Command ksim is the hosted demo/scenario runner that exercises this
// kernel's scheduler, synchronization primitives and signal delivery
// end-to-end, the way distortos's own test applications exercise the
// real target. It is the one layer of this repository with a console to
// log to, so it is also where structured logging (zap), a CLI (cobra)
// and configuration (plain flags) live — none of which the kernel core
// itself imports; see DESIGN.md.
package main

import (
	"go.uber.org/zap"

	"github.com/distortec/gokernel/arch"
	"github.com/distortec/gokernel/kstack"
	"github.com/distortec/gokernel/kthread"
	"github.com/distortec/gokernel/sched"
	"github.com/distortec/gokernel/thread"
	"github.com/distortec/gokernel/tick"
)

// Config collects the kernel's compile-time tunables as explicit,
// runtime-assigned values instead of distortos's DISTORTOS_* static
// configuration constants (translated per SPEC_FULL.md's ambient-stack
// expansion: a Config struct passed explicitly to Kernel construction).
type Config struct {
	// Quantum is the number of ticks a round-robin thread runs before the
	// scheduler rotates its priority group.
	Quantum int
	// StackSize is the default heap stack size, in bytes, for dynamic
	// threads spawned by the scenario runner.
	StackSize int
	// MaxQueuedSignals bounds each thread's queued-signal backlog.
	MaxQueuedSignals int
	// MaxSignalAssociations bounds each thread's distinct (handler, mask)
	// association slots.
	MaxSignalAssociations int
}

// DefaultConfig returns the tunables ksim uses absent any flag override.
func DefaultConfig() Config {
	return Config{
		Quantum:               5,
		StackSize:             4096,
		MaxQueuedSignals:      8,
		MaxSignalAssociations: 8,
	}
}

// Kernel wires together one scheduler, its architecture port and tick
// clock, and the thread group used to enumerate every thread the
// scenario runner has spawned — the minimal "running system" cmd/ksim's
// scenarios execute against.
type Kernel struct {
	Config  Config
	Log     *zap.SugaredLogger
	Clock   *tick.Clock
	Port    *arch.HostPort
	Sched   *sched.Scheduler
	Threads *thread.Group
}

// NewKernel constructs a Kernel ready to spawn threads against. log must
// not be nil.
func NewKernel(cfg Config, log *zap.SugaredLogger) *Kernel {
	clock := &tick.Clock{}
	port := arch.NewHostPort()
	return &Kernel{
		Config:  cfg,
		Log:     log,
		Clock:   clock,
		Port:    port,
		Sched:   sched.New(port, clock, cfg.Quantum),
		Threads: thread.NewGroup(),
	}
}

// Spawn creates and starts a dynamic thread running fn at priority under
// policy, logging its lifecycle transitions. name is used only for
// logging and the TCB's Name field.
func (k *Kernel) Spawn(name string, priority thread.Priority, policy thread.Policy, fn func()) *kthread.Thread {
	stack := kstack.NewOwning(k.Config.StackSize)
	th := kthread.New(k.Sched, k.Port, name, priority, policy, stack, true, func() {
		k.Log.Infow("thread running", "thread", name)
		fn()
		k.Log.Infow("thread exiting", "thread", name)
	})
	th.ConfigureSignals(k.Config.MaxQueuedSignals, k.Config.MaxSignalAssociations)
	k.Threads.Add(th.TCB())
	if err := th.Start(); err != nil {
		k.Log.Errorw("thread failed to start", "thread", name, "error", err)
	}
	return th
}

// ThisThread returns a ThisThread namespace bound to this kernel's
// scheduler, for scenario bodies that need to sleep, yield or inspect
// their own TCB.
func (k *Kernel) ThisThread() kthread.ThisThread {
	return kthread.NewThisThread(k.Sched)
}

// Tick advances the kernel's tick clock by one and runs the scheduler's
// tick handler, the hosted stand-in for the tick ISR firing. Returns
// whether a context switch was requested.
func (k *Kernel) Tick() bool {
	return k.Sched.TickInterruptHandler()
}
