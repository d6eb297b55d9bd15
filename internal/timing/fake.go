package timing

import "time"

// FakeClock is a manually advanced Clock for tests. SleepUntil jumps straight
// to the deadline instead of consuming real CPU, and every requested deadline
// is recorded so tests can assert on the schedule.
//
// FakeClock is not safe for concurrent use; the engine's single-threaded tick
// loop matches that.
type FakeClock struct {
	now    Reading
	sleeps []Reading
}

// NewFakeClock returns a fake clock starting at the given reading.
func NewFakeClock(start Reading) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake current reading.
func (c *FakeClock) Now() Reading {
	return c.now
}

// SleepUntil advances the clock to deadline if it is in the future.
func (c *FakeClock) SleepUntil(deadline Reading) {
	c.sleeps = append(c.sleeps, deadline)
	if deadline > c.now {
		c.now = deadline
	}
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Set moves the clock to a specific reading. Moving backward is not allowed
// and panics, matching the monotonic contract.
func (c *FakeClock) Set(r Reading) {
	if r < c.now {
		panic("timing: FakeClock moved backward")
	}
	c.now = r
}

// Sleeps returns every deadline passed to SleepUntil, in order.
func (c *FakeClock) Sleeps() []Reading {
	out := make([]Reading, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
