//go:build windows

package timing

import (
	"time"

	"golang.org/x/sys/windows"
)

// timerWaiter wraps a waitable timer handle. High-resolution timers need
// Windows 10 1803+; older systems fall back to a standard waitable timer.
type timerWaiter struct {
	handle windows.Handle
}

func acquireWaiter() (waiter, error) {
	h, err := windows.CreateWaitableTimerEx(nil, nil,
		windows.CREATE_WAITABLE_TIMER_HIGH_RESOLUTION, windows.TIMER_ALL_ACCESS)
	if err != nil {
		h, err = windows.CreateWaitableTimerEx(nil, nil, 0, windows.TIMER_ALL_ACCESS)
		if err != nil {
			return nil, err
		}
	}
	return &timerWaiter{handle: h}, nil
}

func (w *timerWaiter) wait(d time.Duration) error {
	// Negative due time means relative, in 100ns intervals.
	due := -int64(d / 100)
	if due >= 0 {
		due = -1
	}
	if err := windows.SetWaitableTimer(w.handle, &due, 0, 0, 0, false); err != nil {
		return err
	}
	_, err := windows.WaitForSingleObject(w.handle, windows.INFINITE)
	return err
}

func (w *timerWaiter) close() error {
	return windows.CloseHandle(w.handle)
}
