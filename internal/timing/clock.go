// Package timing provides the monotonic clock and frame scheduler that the
// experiment engine is built on.
//
// All trial timing flows through a single Clock instance: stimulus onsets,
// response captures, and scheduler deadlines are Readings from the same
// monotonic source, never wall-clock time.
package timing

import (
	"errors"
	"fmt"
	"time"
)

// Reading is a monotonic timestamp in nanoseconds since clock acquisition.
// Only differences between Readings are meaningful.
type Reading int64

// Sub returns the duration elapsed between two readings.
func (r Reading) Sub(earlier Reading) time.Duration {
	return time.Duration(r - earlier)
}

// Add returns the reading offset by d.
func (r Reading) Add(d time.Duration) Reading {
	return r + Reading(d)
}

// Clock is the capability the engine and scheduler depend on. Production code
// uses SystemClock; tests inject a FakeClock to simulate time.
type Clock interface {
	// Now returns the current monotonic reading. It never decreases across
	// successive calls on one clock instance.
	Now() Reading

	// SleepUntil blocks until Now() >= deadline. It never returns early.
	SleepUntil(deadline Reading)
}

// ErrTimerUnavailable indicates the platform high-resolution wait resource
// could not be acquired. Callers fall back to Coarse and flag the run as
// degraded; this is never fatal.
var ErrTimerUnavailable = errors.New("high-resolution timer unavailable")

// DefaultSpinMargin is how long before a deadline SleepUntil stops using the
// coarse OS wait and busy-waits instead, absorbing scheduler quantization.
const DefaultSpinMargin = 500 * time.Microsecond

// SystemClock is the production Clock. It anchors a monotonic epoch at
// acquisition and combines a platform coarse wait with a busy-wait spin for
// the final sub-millisecond margin.
type SystemClock struct {
	epoch      time.Time
	waiter     waiter
	spinMargin time.Duration
}

// Acquire obtains the platform timing resource and returns a clock backed by
// it. On failure it returns ErrTimerUnavailable (possibly wrapped); use
// Coarse for the degraded fallback.
func Acquire() (*SystemClock, error) {
	w, err := acquireWaiter()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire platform timer: %w", err)
	}
	return &SystemClock{
		epoch:      time.Now(),
		waiter:     w,
		spinMargin: DefaultSpinMargin,
	}, nil
}

// Coarse returns a clock without the platform wait resource. SleepUntil
// degrades to time.Sleep plus spin; Now keeps full resolution.
func Coarse() *SystemClock {
	return &SystemClock{
		epoch:      time.Now(),
		spinMargin: DefaultSpinMargin,
	}
}

// Close releases the platform timing resource. Safe to call on a coarse
// clock. The clock must not be used after Close.
func (c *SystemClock) Close() error {
	if c.waiter == nil {
		return nil
	}
	err := c.waiter.close()
	c.waiter = nil
	if err != nil {
		return fmt.Errorf("failed to release platform timer: %w", err)
	}
	return nil
}

// Now returns nanoseconds since acquisition. time.Since reads the runtime's
// monotonic clock, so readings never regress under wall-clock adjustments.
func (c *SystemClock) Now() Reading {
	return Reading(time.Since(c.epoch))
}

// SleepUntil blocks until Now() >= deadline. The bulk of the wait goes to the
// platform waiter (or time.Sleep on a coarse clock); the final spin margin is
// a busy-wait re-reading Now until the deadline passes.
func (c *SystemClock) SleepUntil(deadline Reading) {
	for {
		remaining := deadline.Sub(c.Now())
		if remaining <= c.spinMargin {
			break
		}
		c.coarseWait(remaining - c.spinMargin)
	}
	for c.Now() < deadline {
		// Busy-wait: the margin is sub-millisecond on the expected path.
	}
}

func (c *SystemClock) coarseWait(d time.Duration) {
	if c.waiter != nil {
		if err := c.waiter.wait(d); err == nil {
			return
		}
		// A failing waiter degrades to time.Sleep; the spin loop still
		// enforces the deadline.
	}
	time.Sleep(d)
}

// Bias reports the systematic overshoot of SleepUntil measured by Calibrate.
// It is advisory: callers that want compensation subtract it from their
// deadlines themselves, SleepUntil never applies it.
type Bias struct {
	MeanOvershoot time.Duration
	MaxOvershoot  time.Duration
	Samples       int
}

// calibrateSleep is the per-sample requested sleep used by Calibrate, long
// enough to exercise the coarse wait path.
const calibrateSleep = 2 * time.Millisecond

// Calibrate measures the offset between requested and achieved sleeps over
// the given number of trials.
func (c *SystemClock) Calibrate(samples int) Bias {
	if samples <= 0 {
		return Bias{}
	}
	var sum, max time.Duration
	for i := 0; i < samples; i++ {
		start := c.Now()
		deadline := start.Add(calibrateSleep)
		c.SleepUntil(deadline)
		overshoot := c.Now().Sub(deadline)
		sum += overshoot
		if overshoot > max {
			max = overshoot
		}
	}
	return Bias{
		MeanOvershoot: sum / time.Duration(samples),
		MaxOvershoot:  max,
		Samples:       samples,
	}
}

// HighResolution reports whether the platform wait resource is held.
func (c *SystemClock) HighResolution() bool {
	return c.waiter != nil
}

// waiter is the platform coarse-wait resource behind SystemClock. One
// implementation per platform, selected at build time.
type waiter interface {
	wait(d time.Duration) error
	close() error
}
