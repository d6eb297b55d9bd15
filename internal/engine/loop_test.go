package engine

import (
	"context"
	"testing"
	"time"

	"github.com/vargamartonaron/cogex/internal/model"
	"github.com/vargamartonaron/cogex/internal/timing"
)

func TestRunCompletesAndClosesFrames(t *testing.T) {
	cfg := model.ExperimentConfig{
		PracticeTrials:   0,
		ExperimentTrials: 1,
		FixationMinMs:    1,
		FixationMaxMs:    1,
		StimulusMs:       1,
		ResponseWindowMs: 5,
		FeedbackMs:       1,
		InterTrialMs:     1,
	}
	clk := timing.NewFakeClock(0)
	eng, err := New(cfg, clk, 1)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	sched := timing.NewFrameScheduler(clk, time.Millisecond)
	events := make(chan InputEvent, 8)
	frames := make(chan Snapshot, 64)

	events <- InputEvent{Code: CodeAcknowledge}
	done := make(chan struct{})
	go func() {
		Run(context.Background(), clk, sched, eng, events, frames)
		close(done)
	}()

	// Drain frames; acknowledge the debrief once it appears. The single
	// trial times out on its own.
	acked := false
	for snap := range frames {
		if snap.Phase == PhaseDebrief && !acked {
			events <- InputEvent{Code: CodeAcknowledge}
			acked = true
		}
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not finish")
	}
	if eng.Phase() != PhaseComplete {
		t.Fatalf("expected complete, got %s", eng.Phase())
	}
	records, err := eng.Results().Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestRunHonorsContextCancel(t *testing.T) {
	cfg := model.DefaultExperimentConfig()
	clk := timing.NewFakeClock(0)
	eng, err := New(cfg, clk, 1)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	sched := timing.NewFrameScheduler(clk, time.Millisecond)
	events := make(chan InputEvent, 1)
	frames := make(chan Snapshot, 64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, clk, sched, eng, events, frames)
		close(done)
	}()
	cancel()
	for range frames {
		// Drain until the loop closes the channel.
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop ignored cancellation")
	}
	if eng.Phase() != PhaseComplete {
		t.Fatalf("expected complete after cancel, got %s", eng.Phase())
	}
	if !eng.Results().Finalized() {
		t.Fatal("results log not finalized after cancel")
	}
}
