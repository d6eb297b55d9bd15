// Package engine implements the trial state machine that sequences fixation,
// stimulus onset, response capture, feedback, and inter-trial delay.
//
// An Engine is owned by exactly one goroutine, the tick loop in Run. All
// trial timing uses readings from the single injected clock; reaction times
// are never mixed with wall-clock time.
package engine

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/vargamartonaron/cogex/internal/model"
	"github.com/vargamartonaron/cogex/internal/timing"
)

// InputEvent is one participant input delivered to the engine. CapturedAt is
// honored when HasTimestamp is set (the event source stamped it at capture);
// otherwise the engine stamps the polling instant.
type InputEvent struct {
	Code         Code
	CapturedAt   timing.Reading
	HasTimestamp bool
}

// Engine drives one experiment run.
type Engine struct {
	cfg   model.ExperimentConfig
	clock timing.Clock
	rng   *rand.Rand
	seed  int64

	phase      Phase
	trialCount int
	phaseTrial int
	current    *Trial
	log        ResultsLog
	degraded   bool

	correctCount int
	timeoutCount int
	rtSumNs      int64
	rtCount      int64
	rtMinNs      int64
	rtMaxNs      int64

	cancelRequested atomic.Bool

	// nowWall supplies the absolute timestamp stored on records.
	nowWall func() time.Time
}

// New validates the config and builds an engine in the Welcome phase. The
// seed is recorded so the run can be replayed.
func New(cfg model.ExperimentConfig, clock timing.Clock, seed int64) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment config: %w", err)
	}
	return &Engine{
		cfg:     cfg,
		clock:   clock,
		rng:     rand.New(rand.NewSource(seed)),
		seed:    seed,
		phase:   PhaseWelcome,
		nowWall: time.Now,
	}, nil
}

// Seed returns the recorded run seed.
func (e *Engine) Seed() int64 {
	return e.seed
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Results returns the run's results log. Call Snapshot on it only after the
// run has finalized (Debrief or later).
func (e *Engine) Results() *ResultsLog {
	return &e.log
}

// SetDegraded latches the reduced-precision flag onto subsequent records.
func (e *Engine) SetDegraded(degraded bool) {
	if degraded {
		e.degraded = true
	}
}

// Degraded reports whether the run is flagged as reduced precision.
func (e *Engine) Degraded() bool {
	return e.degraded
}

// Cancel requests emergency cancellation. Safe to call from any goroutine;
// the tick loop honors it at the next tick, discarding the in-flight trial
// and finalizing completed records.
func (e *Engine) Cancel() {
	e.cancelRequested.Store(true)
}

// RestartPractice is the explicit backward transition: it returns the run to
// the start of the practice block. Valid only while trials are running.
// Already-recorded trials stay in the log.
func (e *Engine) RestartPractice() error {
	if !e.phase.runsTrials() {
		return fmt.Errorf("practice restart not allowed in phase %s", e.phase)
	}
	e.phase = PhasePractice
	e.phaseTrial = 0
	e.current = nil
	return nil
}

// Tick advances the state machine by one frame. It reads the clock once,
// consumes this tick's input events, and reports whether the run is complete.
func (e *Engine) Tick(events []InputEvent) bool {
	if e.cancelRequested.Load() && e.phase != PhaseComplete {
		e.current = nil
		e.log.Finalize()
		e.phase = PhaseComplete
		return true
	}

	now := e.clock.Now()
	switch e.phase {
	case PhaseWelcome:
		if hasCode(events, CodeAcknowledge) {
			e.advancePhase()
		}
	case PhasePractice, PhaseExperiment:
		if hasCode(events, CodeRestartPractice) {
			// Errors cannot occur here; the phase check above guards it.
			_ = e.RestartPractice()
			break
		}
		e.tickTrial(now, events)
	case PhaseDebrief:
		if hasCode(events, CodeAcknowledge) {
			e.phase = PhaseComplete
		}
	case PhaseComplete:
	}
	return e.phase == PhaseComplete
}

func hasCode(events []InputEvent, code Code) bool {
	for _, ev := range events {
		if ev.Code == code {
			return true
		}
	}
	return false
}

// advancePhase moves forward one phase, skipping trial phases with a zero
// trial count, and finalizes the log on Debrief entry.
func (e *Engine) advancePhase() {
	for {
		e.phase = e.phase.next()
		e.phaseTrial = 0
		if e.phase.runsTrials() && e.phaseTrialTarget() == 0 {
			continue
		}
		break
	}
	if e.phase >= PhaseDebrief {
		e.log.Finalize()
	}
}

func (e *Engine) phaseTrialTarget() int {
	switch e.phase {
	case PhasePractice:
		return e.cfg.PracticeTrials
	case PhaseExperiment:
		return e.cfg.ExperimentTrials
	default:
		return 0
	}
}

func (e *Engine) tickTrial(now timing.Reading, events []InputEvent) {
	if e.current == nil {
		e.current = generateTrial(e.trialCount+1, e.rng, e.cfg.FixationMinMs, e.cfg.FixationMaxMs, now)
	}
	t := e.current

	switch t.State {
	case TrialFixation:
		// Input during fixation is ignored, not an error.
		if now.Sub(t.FixationStart) >= time.Duration(t.FixationMs)*time.Millisecond {
			// Onset anchors the reaction time; the response window opens in
			// the same instant.
			t.Onset = now
			t.HasOnset = true
			t.State = TrialResponse
		}

	case TrialResponse:
		window := time.Duration(e.cfg.ResponseWindowMs) * time.Millisecond
		for _, ev := range events {
			if !ev.Code.IsResponse() {
				continue
			}
			captured := now
			if ev.HasTimestamp {
				captured = ev.CapturedAt
			}
			rt := captured.Sub(t.Onset)
			if rt < 0 || rt > window {
				// Stale or post-window capture does not qualify.
				continue
			}
			t.Response = captured
			t.ResponseCode = ev.Code
			t.HasResponse = true
			if ev.Code == ExpectedResponse(t.Stimulus) {
				t.Outcome = OutcomeCorrect
			} else {
				t.Outcome = OutcomeIncorrect
			}
			t.State = TrialFeedback
			t.feedbackStart = now
			return
		}
		if now.Sub(t.Onset) >= window {
			t.Outcome = OutcomeTimeout
			t.State = TrialFeedback
			t.feedbackStart = now
		}

	case TrialFeedback:
		if now.Sub(t.feedbackStart) >= time.Duration(e.cfg.FeedbackMs)*time.Millisecond {
			e.record(t)
			t.State = TrialInterTrial
			t.interTrialStart = now
		}

	case TrialInterTrial:
		if now.Sub(t.interTrialStart) >= time.Duration(e.cfg.InterTrialMs)*time.Millisecond {
			e.current = nil
			e.trialCount++
			e.phaseTrial++
			if e.phaseTrial >= e.phaseTrialTarget() {
				e.advancePhase()
			}
		}
	}
}

func (e *Engine) record(t *Trial) {
	rec := model.ResultRecord{
		TrialID:         t.ID,
		StimulusType:    t.Stimulus.Tag(),
		ResponseCorrect: t.Outcome == OutcomeCorrect,
		Timestamp:       e.nowWall().UnixMilli(),
		Practice:        e.phase == PhasePractice,
		DegradedTiming:  e.degraded,
	}
	if rt, ok := t.ReactionNs(); ok {
		rec.ReactionTimeNs = &rt
		e.rtSumNs += rt
		e.rtCount++
		if e.rtCount == 1 || rt < e.rtMinNs {
			e.rtMinNs = rt
		}
		if rt > e.rtMaxNs {
			e.rtMaxNs = rt
		}
	}
	switch t.Outcome {
	case OutcomeCorrect:
		e.correctCount++
	case OutcomeTimeout:
		e.timeoutCount++
	}
	e.log.append(rec)
}

// Snapshot is the render-facing view of the run for one frame. It carries
// tags and counts only; drawing stays outside the engine.
type Snapshot struct {
	Phase      Phase
	HasTrial   bool
	TrialState TrialState
	Stimulus   Stimulus
	// ShowStimulus is true while the stimulus presentation window is open.
	ShowStimulus bool
	Outcome      Outcome
	// TrialNum/TrialTotal are 1-based within the current phase.
	TrialNum   int
	TrialTotal int
	Degraded   bool
	Done       bool

	// Debrief summary, valid once the log is finalized.
	Recorded     int
	CorrectCount int
	TimeoutCount int
	MeanRTMs     float64
	MinRTMs      float64
	MaxRTMs      float64
}

// Snapshot builds the view of the current state at the given reading.
func (e *Engine) Snapshot(now timing.Reading) Snapshot {
	snap := Snapshot{
		Phase:      e.phase,
		TrialNum:   e.phaseTrial + 1,
		TrialTotal: e.phaseTrialTarget(),
		Degraded:   e.degraded,
		Done:       e.phase == PhaseComplete,
		Recorded:   e.log.Len(),
	}
	if t := e.current; t != nil {
		snap.HasTrial = true
		snap.TrialState = t.State
		snap.Stimulus = t.Stimulus
		snap.Outcome = t.Outcome
		if t.State == TrialResponse && t.HasOnset {
			snap.ShowStimulus = now.Sub(t.Onset) < time.Duration(e.cfg.StimulusMs)*time.Millisecond
		}
	}
	snap.CorrectCount = e.correctCount
	snap.TimeoutCount = e.timeoutCount
	if e.rtCount > 0 {
		snap.MeanRTMs = float64(e.rtSumNs) / float64(e.rtCount) / 1e6
		snap.MinRTMs = float64(e.rtMinNs) / 1e6
		snap.MaxRTMs = float64(e.rtMaxNs) / 1e6
	}
	return snap
}
