//go:build !linux && !windows

package timing

import "time"

// sleepWaiter is the portable fallback. The spin margin in SleepUntil still
// bounds the wake-up error.
type sleepWaiter struct{}

func acquireWaiter() (waiter, error) {
	return sleepWaiter{}, nil
}

func (sleepWaiter) wait(d time.Duration) error {
	time.Sleep(d)
	return nil
}

func (sleepWaiter) close() error {
	return nil
}
