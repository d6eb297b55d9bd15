package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vargamartonaron/cogex/internal/engine"
	"github.com/vargamartonaron/cogex/internal/timing"
)

func newTestModel(t *testing.T) (*Model, *timing.FakeClock, chan engine.InputEvent, chan engine.Snapshot, *bool) {
	t.Helper()
	clk := timing.NewFakeClock(0)
	events := make(chan engine.InputEvent, 16)
	frames := make(chan engine.Snapshot, 1)
	cancelled := false
	m := NewModel(clk, events, frames, func() { cancelled = true })
	return m, clk, events, frames, &cancelled
}

func TestKeyEventsCarryTimestamps(t *testing.T) {
	m, clk, events, _, _ := newTestModel(t)
	clk.Advance(250 * time.Millisecond)

	cases := []struct {
		msg  tea.KeyMsg
		code engine.Code
	}{
		{tea.KeyMsg{Type: tea.KeySpace}, engine.CodeAcknowledge},
		{tea.KeyMsg{Type: tea.KeyEnter}, engine.CodeAcknowledge},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}}, engine.CodePrimary},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}, engine.CodeSecondary},
		{tea.KeyMsg{Type: tea.KeyLeft}, engine.CodeLeft},
		{tea.KeyMsg{Type: tea.KeyRight}, engine.CodeRight},
		{tea.KeyMsg{Type: tea.KeyCtrlR}, engine.CodeRestartPractice},
	}
	for _, tc := range cases {
		m.Update(tc.msg)
		select {
		case ev := <-events:
			if ev.Code != tc.code {
				t.Fatalf("key %v: expected code %v, got %v", tc.msg, tc.code, ev.Code)
			}
			if !ev.HasTimestamp || ev.CapturedAt != clk.Now() {
				t.Fatalf("key %v: expected capture timestamp %v, got %+v", tc.msg, clk.Now(), ev)
			}
		default:
			t.Fatalf("key %v: no event sent", tc.msg)
		}
	}
}

func TestUnboundKeysIgnored(t *testing.T) {
	m, _, events, _, _ := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	select {
	case ev := <-events:
		t.Fatalf("expected no event, got %+v", ev)
	default:
	}
}

func TestCtrlCRequestsCancel(t *testing.T) {
	m, _, events, _, cancelled := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !*cancelled {
		t.Fatal("expected cancel to be requested")
	}
	if cmd != nil {
		t.Fatal("expected ctrl+c to wait for the loop to finish, not quit")
	}
	select {
	case ev := <-events:
		t.Fatalf("expected no event on cancel, got %+v", ev)
	default:
	}
}

func TestFramesClosedQuits(t *testing.T) {
	m, _, _, _, _ := newTestModel(t)
	_, cmd := m.Update(framesClosedMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Fatalf("expected quit message, got %T", msg)
	}
}

func TestFrameUpdatesSnapshot(t *testing.T) {
	m, _, _, frames, _ := newTestModel(t)
	frames <- engine.Snapshot{Phase: engine.PhaseWelcome}
	msg := m.Init()()
	snap, ok := msg.(frameMsg)
	if !ok {
		t.Fatalf("expected frame message, got %T", msg)
	}
	_, cmd := m.Update(snap)
	if cmd == nil {
		t.Fatal("expected resubscribe command after frame")
	}
	if !m.hasSnap || m.snap.Phase != engine.PhaseWelcome {
		t.Fatalf("snapshot not applied: %+v", m.snap)
	}
}

func TestRenderTrialStates(t *testing.T) {
	m, _, _, _, _ := newTestModel(t)
	m.hasSnap = true

	m.snap = engine.Snapshot{
		Phase:      engine.PhasePractice,
		HasTrial:   true,
		TrialState: engine.TrialFixation,
	}
	if !strings.Contains(m.renderTrial(), "+") {
		t.Fatal("expected fixation cross")
	}

	m.snap.TrialState = engine.TrialResponse
	m.snap.Stimulus = engine.StimulusCircle
	m.snap.ShowStimulus = true
	if !strings.Contains(m.renderTrial(), "●") {
		t.Fatal("expected stimulus glyph while presentation window is open")
	}
	m.snap.ShowStimulus = false
	if m.renderTrial() != "" {
		t.Fatal("expected blank display after presentation window")
	}

	m.snap.TrialState = engine.TrialFeedback
	for outcome, want := range map[engine.Outcome]string{
		engine.OutcomeCorrect:   "correct",
		engine.OutcomeIncorrect: "incorrect",
		engine.OutcomeTimeout:   "too slow",
	} {
		m.snap.Outcome = outcome
		if !strings.Contains(m.renderTrial(), want) {
			t.Fatalf("outcome %v: expected %q in view", outcome, want)
		}
	}
}

func TestRenderFooter(t *testing.T) {
	m, _, _, _, _ := newTestModel(t)
	m.hasSnap = true
	m.snap = engine.Snapshot{
		Phase:      engine.PhasePractice,
		TrialNum:   3,
		TrialTotal: 20,
	}
	footer := m.renderFooter()
	if !strings.Contains(footer, "Practice 3/20") || !strings.Contains(footer, "ctrl+r") {
		t.Fatalf("unexpected practice footer: %q", footer)
	}

	m.snap.Phase = engine.PhaseExperiment
	m.snap.Degraded = true
	footer = m.renderFooter()
	if !strings.Contains(footer, "Trial 3/20") || !strings.Contains(footer, "degraded") {
		t.Fatalf("unexpected experiment footer: %q", footer)
	}

	m.snap.Phase = engine.PhaseWelcome
	if m.renderFooter() != "" {
		t.Fatal("expected no footer outside trial phases")
	}
}

func TestRenderDebrief(t *testing.T) {
	m, _, _, _, _ := newTestModel(t)
	m.hasSnap = true
	m.snap = engine.Snapshot{
		Phase:        engine.PhaseDebrief,
		Recorded:     120,
		CorrectCount: 110,
		TimeoutCount: 4,
		MeanRTMs:     342.5,
		MinRTMs:      201.2,
		MaxRTMs:      998.7,
	}
	out := m.renderDebrief()
	for _, want := range []string{"120", "110", "342.5 ms", "201.2 ms", "998.7 ms"} {
		if !strings.Contains(out, want) {
			t.Fatalf("debrief missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "degraded") {
		t.Fatal("unexpected degraded notice")
	}
	m.snap.Degraded = true
	if !strings.Contains(m.renderDebrief(), "degraded") {
		t.Fatal("expected degraded notice")
	}
}
