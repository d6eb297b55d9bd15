package engine

import (
	"math/rand"

	"github.com/vargamartonaron/cogex/internal/timing"
)

// TrialState is the inner sequence of one trial. Stimulus onset opens the
// response window in the same tick, so there is no separate onset state.
type TrialState int

const (
	TrialFixation TrialState = iota
	TrialResponse
	TrialFeedback
	TrialInterTrial
)

// String returns a display tag for the trial state.
func (s TrialState) String() string {
	switch s {
	case TrialFixation:
		return "fixation"
	case TrialResponse:
		return "response"
	case TrialFeedback:
		return "feedback"
	case TrialInterTrial:
		return "inter-trial"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a trial.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeCorrect
	OutcomeIncorrect
	OutcomeTimeout
)

// Trial is the in-flight trial owned by the engine.
type Trial struct {
	ID         int
	Stimulus   Stimulus
	FixationMs int64

	FixationStart timing.Reading
	// Onset anchors reaction-time computation; valid once HasOnset is set.
	Onset    timing.Reading
	HasOnset bool
	// Response and ResponseCode are set when a qualifying input is captured.
	Response     timing.Reading
	ResponseCode Code
	HasResponse  bool

	Outcome Outcome
	State   TrialState

	feedbackStart   timing.Reading
	interTrialStart timing.Reading
}

// ReactionNs returns the captured reaction time in nanoseconds.
func (t *Trial) ReactionNs() (int64, bool) {
	if !t.HasResponse || !t.HasOnset {
		return 0, false
	}
	return int64(t.Response - t.Onset), true
}

// generateTrial samples a new trial at Fixation entry. Fixation duration is
// uniform over [min,max] inclusive; the stimulus is drawn from the fixed set.
// Both come from the run's seeded generator so runs are replayable.
func generateTrial(id int, rng *rand.Rand, minMs, maxMs int64, now timing.Reading) *Trial {
	fixation := minMs + rng.Int63n(maxMs-minMs+1)
	stim := stimulusSet[rng.Intn(len(stimulusSet))]
	return &Trial{
		ID:            id,
		Stimulus:      stim,
		FixationMs:    fixation,
		FixationStart: now,
		State:         TrialFixation,
	}
}
