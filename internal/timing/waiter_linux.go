//go:build linux

package timing

import (
	"time"

	"golang.org/x/sys/unix"
)

// monotonicWaiter sleeps on CLOCK_MONOTONIC via clock_nanosleep, which is not
// subject to wall-clock adjustments.
type monotonicWaiter struct{}

func acquireWaiter() (waiter, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return nil, err
	}
	return monotonicWaiter{}, nil
}

func (monotonicWaiter) wait(d time.Duration) error {
	req := unix.NsecToTimespec(d.Nanoseconds())
	for {
		var remain unix.Timespec
		err := unix.ClockNanosleep(unix.CLOCK_MONOTONIC, 0, &req, &remain)
		if err == nil {
			return nil
		}
		if err != unix.EINTR {
			return err
		}
		req = remain
	}
}

func (monotonicWaiter) close() error {
	return nil
}
