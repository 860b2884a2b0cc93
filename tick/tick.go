// Package tick implements the kernel's monotonic tick clock.
//
// A Clock is a free-running 64-bit tick counter, advanced only by the
// scheduler's tick interrupt handler, which advances it first and then
// checks deadlines against the new value. It is readable from any context
// without masking interrupts.
package tick

import "go.uber.org/atomic"

// Duration is a signed number of ticks. It is the result of subtracting
// two Points, or the argument to sleeps and timed waits.
type Duration int64

// Point is a value of the tick clock: an unsigned count of ticks since
// boot. Arithmetic on Points is expected not to wrap within a system
// lifetime; this package does not attempt to detect wraparound.
type Point uint64

// Add returns p advanced by d ticks.
func (p Point) Add(d Duration) Point {
	return Point(int64(p) + int64(d))
}

// Sub returns the number of ticks between p and q (p - q).
func (p Point) Sub(q Point) Duration {
	return Duration(int64(p) - int64(q))
}

// Before reports whether p occurred strictly before q.
func (p Point) Before(q Point) bool {
	return p < q
}

// Clock is a monotonic tick counter. The zero value starts at tick 0 and
// is ready to use. A Clock is safe for concurrent use; Advance is expected
// to be called only from the tick interrupt handler, never concurrently
// with itself.
type Clock struct {
	ticks atomic.Uint64
}

// Now returns the current tick count.
func (c *Clock) Now() Point {
	return Point(c.ticks.Load())
}

// Advance moves the clock forward by exactly one tick and returns the new
// value. Called once per tick interrupt, at the start of the scheduler's
// tick handler, which then times out sleepers against the returned value.
func (c *Clock) Advance() Point {
	return Point(c.ticks.Add(1))
}
