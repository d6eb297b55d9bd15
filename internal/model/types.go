// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// ExperimentConfig holds the timing and count parameters of a run. It is
// validated before the run starts and immutable afterwards.
type ExperimentConfig struct {
	PracticeTrials   int
	ExperimentTrials int
	FixationMinMs    int64
	FixationMaxMs    int64
	StimulusMs       int64
	ResponseWindowMs int64
	FeedbackMs       int64
	InterTrialMs     int64
}

// DefaultExperimentConfig mirrors the conventional reaction-time protocol
// parameters.
func DefaultExperimentConfig() ExperimentConfig {
	return ExperimentConfig{
		PracticeTrials:   20,
		ExperimentTrials: 100,
		FixationMinMs:    500,
		FixationMaxMs:    1500,
		StimulusMs:       200,
		ResponseWindowMs: 2000,
		FeedbackMs:       500,
		InterTrialMs:     1000,
	}
}

// Validate fails fast on configs that would invalidate collected data.
func (c ExperimentConfig) Validate() error {
	if c.PracticeTrials < 0 {
		return fmt.Errorf("practice trial count must be >= 0, got %d", c.PracticeTrials)
	}
	if c.ExperimentTrials < 0 {
		return fmt.Errorf("experiment trial count must be >= 0, got %d", c.ExperimentTrials)
	}
	if c.FixationMinMs <= 0 || c.FixationMaxMs <= 0 {
		return fmt.Errorf("fixation range must be positive, got (%d, %d)", c.FixationMinMs, c.FixationMaxMs)
	}
	if c.FixationMinMs > c.FixationMaxMs {
		return fmt.Errorf("fixation min %d exceeds max %d", c.FixationMinMs, c.FixationMaxMs)
	}
	for _, d := range []struct {
		name string
		ms   int64
	}{
		{"stimulus duration", c.StimulusMs},
		{"response window", c.ResponseWindowMs},
		{"feedback duration", c.FeedbackMs},
		{"inter-trial interval", c.InterTrialMs},
	} {
		if d.ms <= 0 {
			return fmt.Errorf("%s must be positive, got %d ms", d.name, d.ms)
		}
	}
	return nil
}

// TotalTrials returns the number of terminal trials an uninterrupted run
// produces.
func (c ExperimentConfig) TotalTrials() int {
	return c.PracticeTrials + c.ExperimentTrials
}

// ResultRecord is one terminal trial outcome, the unit of export.
type ResultRecord struct {
	TrialID      int    `json:"trial_id"`
	StimulusType string `json:"stimulus_type"`
	// ReactionTimeNs is nil on timeout, never zero.
	ReactionTimeNs  *int64 `json:"reaction_time_ns,omitempty"`
	ResponseCorrect bool   `json:"response_correct"`
	// Timestamp is absolute epoch milliseconds at record creation.
	Timestamp int64 `json:"timestamp"`
	// Practice tags practice-phase trials so analysis can filter them.
	Practice bool `json:"practice"`
	// DegradedTiming marks records collected under reduced precision
	// confidence.
	DegradedTiming bool `json:"degraded_timing,omitempty"`
}

// RunInfo describes a stored run.
type RunInfo struct {
	RunID     int64
	StartedAt time.Time
	EndedAt   time.Time
	Seed      int64
	Config    ExperimentConfig
	FrameRate int
	Degraded  bool
	Trials    int
	Timeouts  int
	Correct   int
	RTSumNs   int64
	RTCount   int64
}

// MeanRTMs returns the run's mean reaction time in milliseconds, zero when no
// trial received a response.
func (r RunInfo) MeanRTMs() float64 {
	if r.RTCount == 0 {
		return 0
	}
	return float64(r.RTSumNs) / float64(r.RTCount) / 1e6
}

// StimulusAggregate accumulates outcomes per stimulus tag across runs.
type StimulusAggregate struct {
	StimulusType string
	Correct      int
	Incorrect    int
	Timeouts     int
	RTSumNs      int64
	RTCount      int64
}

// MeanRTMs returns the mean reaction time in milliseconds, zero when no
// responded trials exist.
func (a StimulusAggregate) MeanRTMs() float64 {
	if a.RTCount == 0 {
		return 0
	}
	return float64(a.RTSumNs) / float64(a.RTCount) / 1e6
}

// Accuracy returns the fraction of trials answered correctly, timeouts
// included in the denominator.
func (a StimulusAggregate) Accuracy() float64 {
	total := a.Correct + a.Incorrect + a.Timeouts
	if total == 0 {
		return 0
	}
	return float64(a.Correct) / float64(total)
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
	// IncludePractice keeps practice-phase records in aggregates.
	IncludePractice bool
}
