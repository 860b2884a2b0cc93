package main

import (
	"time"

	"github.com/distortec/gokernel/kmutex"
	"github.com/distortec/gokernel/ksem"
	"github.com/distortec/gokernel/ksignal"
	"github.com/distortec/gokernel/thread"
)

// scenario names accepted by the "scenario" subcommand's --name flag.
const (
	ScenarioMutexPriorityInheritance   = "mutex-pi"
	ScenarioSemaphoreProducerConsumer  = "sem-producer-consumer"
	ScenarioSignalDelivery             = "signal-delivery"
	ScenarioSleepTimeout               = "sleep-timeout"
)

// ScenarioNames lists every scenario the "scenario" subcommand can run by
// name, in a stable order for --help text and the "run" subcommand's
// default bundle.
var ScenarioNames = []string{
	ScenarioMutexPriorityInheritance,
	ScenarioSemaphoreProducerConsumer,
	ScenarioSignalDelivery,
	ScenarioSleepTimeout,
}

// runScenario dispatches to the named scenario, returning a channel closed
// once it has fully completed, or nil and an error if name is unknown.
func runScenario(k *Kernel, name string) (<-chan struct{}, error) {
	switch name {
	case ScenarioMutexPriorityInheritance:
		return scenarioMutexPriorityInheritance(k), nil
	case ScenarioSemaphoreProducerConsumer:
		return scenarioSemaphoreProducerConsumer(k), nil
	case ScenarioSignalDelivery:
		return scenarioSignalDelivery(k), nil
	case ScenarioSleepTimeout:
		return scenarioSleepTimeout(k), nil
	default:
		return nil, errUnknownScenario(name)
	}
}

type errUnknownScenario string

func (e errUnknownScenario) Error() string { return "ksim: unknown scenario " + string(e) }

// scenarioMutexPriorityInheritance demonstrates a low-priority lock holder
// being boosted to a high-priority waiter's level while the mutex is held
// under ProtocolPriorityInheritance, grounded on spec §4.G's priority
// donation rule and exercised the way Mutex.cpp's own unit tests drive the
// donation/restoration sequence.
func scenarioMutexPriorityInheritance(k *Kernel) <-chan struct{} {
	done := make(chan struct{})
	m := kmutex.New(k.Sched, kmutex.TypeNormal, kmutex.ProtocolPriorityInheritance, 0)
	holderAcquired := make(chan struct{})

	k.Spawn("pi-low-holder", 2, thread.PolicyFIFO, func() {
		current := k.Sched.Current()
		if err := m.Lock(current); err != nil {
			k.Log.Errorw("pi-low-holder failed to lock", "error", err)
			return
		}
		close(holderAcquired)
		// Hold the mutex across several ticks so the high-priority
		// waiter below actually contends for it and donates.
		_ = k.ThisThread().SleepFor(10)
		k.Log.Infow("pi-low-holder effective priority while held",
			"effective", current.EffectivePriority())
		if err := m.Unlock(current); err != nil {
			k.Log.Errorw("pi-low-holder failed to unlock", "error", err)
		}
	})

	k.Spawn("pi-high-waiter", 8, thread.PolicyFIFO, func() {
		<-holderAcquired
		current := k.Sched.Current()
		if err := m.Lock(current); err != nil {
			k.Log.Errorw("pi-high-waiter failed to lock", "error", err)
			close(done)
			return
		}
		k.Log.Infow("pi-high-waiter acquired mutex after donation")
		_ = m.Unlock(current)
		close(done)
	})

	return done
}

// scenarioSemaphoreProducerConsumer demonstrates a bounded counting
// semaphore coordinating a producer and a consumer thread, grounded on
// Semaphore.cpp's post/wait pairing and spec §4.H.
func scenarioSemaphoreProducerConsumer(k *Kernel) <-chan struct{} {
	const items = 5
	done := make(chan struct{})
	sem := ksem.New(k.Sched, 0, items)

	k.Spawn("producer", 5, thread.PolicyFIFO, func() {
		for i := 0; i < items; i++ {
			_ = k.ThisThread().SleepFor(2)
			if err := sem.Post(); err != nil {
				k.Log.Errorw("producer post failed", "error", err)
				return
			}
			k.Log.Infow("producer posted", "item", i)
		}
	})

	k.Spawn("consumer", 5, thread.PolicyFIFO, func() {
		current := k.Sched.Current()
		for i := 0; i < items; i++ {
			if err := sem.Wait(current); err != nil {
				k.Log.Errorw("consumer wait failed", "error", err)
				return
			}
			k.Log.Infow("consumer consumed", "item", i)
		}
		close(done)
	})

	return done
}

// scenarioSignalDelivery demonstrates asynchronous signal delivery: a
// target thread installs a handler for signal 3, then a signaler thread
// generates it from outside, exercising notify's
// RequestFunctionExecution path (SignalsCatcherControlBlock.cpp's
// deliverNext, reached through another thread rather than synchronously).
func scenarioSignalDelivery(k *Kernel) <-chan struct{} {
	const signalNumber = 3
	done := make(chan struct{})
	ready := make(chan struct{})

	target := k.Spawn("signal-target", 4, thread.PolicyFIFO, func() {
		// Sleeps well past the signal-source's delay below so delivery
		// reaches it via notify's RequestFunctionExecution path instead
		// of running synchronously on its own stack.
		_ = k.ThisThread().SleepFor(50)
	})
	_, err := target.SetAssociation(signalNumber, ksignal.Action{
		Handler: func(info ksignal.Info) {
			k.Log.Infow("signal-target received signal", "number", info.Number)
			close(done)
		},
	})
	if err != nil {
		k.Log.Errorw("failed to install signal association", "error", err)
	}
	close(ready)

	k.Spawn("signal-source", 4, thread.PolicyFIFO, func() {
		<-ready
		_ = k.ThisThread().SleepFor(3)
		if err := target.GenerateSignal(signalNumber); err != nil {
			k.Log.Errorw("signal-source failed to generate signal", "error", err)
		}
	})

	return done
}

// scenarioSleepTimeout demonstrates ThisThread.SleepFor blocking for a
// bounded number of ticks and resuming once the tick driver supplies them,
// grounded on ThisThread.cpp's sleepFor/sleepUntil.
func scenarioSleepTimeout(k *Kernel) <-chan struct{} {
	done := make(chan struct{})
	k.Spawn("sleeper", 5, thread.PolicyFIFO, func() {
		start := k.Clock.Now()
		_ = k.ThisThread().SleepFor(20)
		woke := k.Clock.Now()
		k.Log.Infow("sleeper woke", "slept_ticks", woke.Sub(start))
		close(done)
	})
	return done
}

// waitWithDeadline blocks on done up to timeout of real wall-clock time,
// reporting whether it fired in time. Used by the "run"/"scenario"
// subcommands, which drive simulated ticks off a real-time ticker and so
// need a real-time bound on how long a scenario is allowed to take.
func waitWithDeadline(done <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
