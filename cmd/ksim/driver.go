package main

import "time"

// tickInterval is the real wall-clock period between simulated tick
// interrupts when a subcommand has no external tick source of its own —
// the hosted stand-in for a real target's timer peripheral.
const tickInterval = 2 * time.Millisecond

// startTickDriver spawns a goroutine that calls k.Tick() once per
// tickInterval until stop is called, and returns stop, which halts it and
// waits for the goroutine to exit.
func startTickDriver(k *Kernel) (stop func()) {
	done := make(chan struct{})
	quit := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				k.Tick()
			case <-quit:
				return
			}
		}
	}()
	return func() {
		close(quit)
		<-done
	}
}
