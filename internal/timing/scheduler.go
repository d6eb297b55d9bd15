package timing

import "time"

const (
	// DefaultJitterWindow is the size of the sliding jitter sample window.
	DefaultJitterWindow = 120

	// DefaultOverrunThreshold is the rolling mean delta above which a frame
	// counts toward sustained overrun.
	DefaultOverrunThreshold = 2 * time.Millisecond

	// DefaultOverrunFrames is how many consecutive over-threshold frames mark
	// timing as degraded.
	DefaultOverrunFrames = 30
)

// JitterSample records one frame's deviation from its scheduled deadline.
type JitterSample struct {
	Frame    int
	Deadline Reading
	Actual   Reading
	// Delta is Actual - Deadline in nanoseconds; non-negative because
	// SleepUntil never returns early.
	Delta int64
}

// JitterStats summarizes the current sample window.
type JitterStats struct {
	Samples int
	MeanNs  float64
	MaxNs   int64
}

// FrameScheduler paces a loop at a fixed cadence. Deadlines advance by a
// fixed increment from the base deadline chosen at Start, so individual
// overruns never accumulate into drift.
//
// A scheduler belongs to the single tick goroutine; Wait must not be called
// concurrently.
type FrameScheduler struct {
	clock    Clock
	interval time.Duration

	overrunThreshold time.Duration
	overrunFrames    int

	started  bool
	base     Reading
	frame    int
	deadline Reading

	window     []JitterSample
	windowSize int

	overrunStreak int
	degraded      bool
}

// SchedulerOption adjusts FrameScheduler construction.
type SchedulerOption func(*FrameScheduler)

// WithJitterWindow sets the sliding window size.
func WithJitterWindow(n int) SchedulerOption {
	return func(s *FrameScheduler) {
		if n > 0 {
			s.windowSize = n
		}
	}
}

// WithOverrunPolicy sets the rolling-mean threshold and the consecutive frame
// count that together flag degraded timing.
func WithOverrunPolicy(threshold time.Duration, frames int) SchedulerOption {
	return func(s *FrameScheduler) {
		if threshold > 0 {
			s.overrunThreshold = threshold
		}
		if frames > 0 {
			s.overrunFrames = frames
		}
	}
}

// NewFrameScheduler builds a scheduler ticking every interval on the given
// clock.
func NewFrameScheduler(clock Clock, interval time.Duration, opts ...SchedulerOption) *FrameScheduler {
	s := &FrameScheduler{
		clock:            clock,
		interval:         interval,
		overrunThreshold: DefaultOverrunThreshold,
		overrunFrames:    DefaultOverrunFrames,
		windowSize:       DefaultJitterWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start anchors the cadence: the first deadline is one interval from now.
func (s *FrameScheduler) Start() {
	s.base = s.clock.Now().Add(s.interval)
	s.deadline = s.base
	s.frame = 0
	s.window = s.window[:0]
	s.overrunStreak = 0
	s.degraded = false
	s.started = true
}

// Wait blocks until the current frame deadline, records the jitter sample,
// and advances the schedule by exactly one interval.
func (s *FrameScheduler) Wait() JitterSample {
	if !s.started {
		s.Start()
	}
	s.clock.SleepUntil(s.deadline)
	actual := s.clock.Now()
	sample := JitterSample{
		Frame:    s.frame,
		Deadline: s.deadline,
		Actual:   actual,
		Delta:    int64(actual - s.deadline),
	}
	s.push(sample)
	s.frame++
	s.deadline = s.base + Reading(int64(s.frame)*int64(s.interval))
	return sample
}

func (s *FrameScheduler) push(sample JitterSample) {
	if len(s.window) >= s.windowSize {
		copy(s.window, s.window[1:])
		s.window = s.window[:len(s.window)-1]
	}
	s.window = append(s.window, sample)

	if time.Duration(s.meanDelta()) > s.overrunThreshold {
		s.overrunStreak++
		if s.overrunStreak >= s.overrunFrames {
			s.degraded = true
		}
	} else {
		s.overrunStreak = 0
	}
}

func (s *FrameScheduler) meanDelta() float64 {
	if len(s.window) == 0 {
		return 0
	}
	var sum int64
	for _, w := range s.window {
		sum += w.Delta
	}
	return float64(sum) / float64(len(s.window))
}

// Interval returns the frame interval.
func (s *FrameScheduler) Interval() time.Duration {
	return s.interval
}

// Frame returns the number of completed frames.
func (s *FrameScheduler) Frame() int {
	return s.frame
}

// Deadline returns the next scheduled deadline.
func (s *FrameScheduler) Deadline() Reading {
	return s.deadline
}

// Degraded reports whether sustained overrun has been detected. It latches:
// once true it stays true for the run.
func (s *FrameScheduler) Degraded() bool {
	return s.degraded
}

// Window returns a copy of the current jitter sample window.
func (s *FrameScheduler) Window() []JitterSample {
	out := make([]JitterSample, len(s.window))
	copy(out, s.window)
	return out
}

// Stats summarizes the current window.
func (s *FrameScheduler) Stats() JitterStats {
	stats := JitterStats{Samples: len(s.window), MeanNs: s.meanDelta()}
	for _, w := range s.window {
		if w.Delta > stats.MaxNs {
			stats.MaxNs = w.Delta
		}
	}
	return stats
}
