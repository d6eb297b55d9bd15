package engine

// Phase is the run-level state. Transitions are monotonic in this ordering;
// the only backward edge is the explicit practice restart.
type Phase int

const (
	PhaseWelcome Phase = iota
	PhasePractice
	PhaseExperiment
	PhaseDebrief
	PhaseComplete
)

// String returns the stable tag used in storage and display.
func (p Phase) String() string {
	switch p {
	case PhaseWelcome:
		return "welcome"
	case PhasePractice:
		return "practice"
	case PhaseExperiment:
		return "experiment"
	case PhaseDebrief:
		return "debrief"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// runsTrials reports whether the phase executes trials.
func (p Phase) runsTrials() bool {
	return p == PhasePractice || p == PhaseExperiment
}

func (p Phase) next() Phase {
	if p >= PhaseComplete {
		return PhaseComplete
	}
	return p + 1
}
