// Package tui provides the Bubble Tea experiment interface.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vargamartonaron/cogex/internal/engine"
	"github.com/vargamartonaron/cogex/internal/timing"
)

var (
	fixationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	stimulusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	correctStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	wrongStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	timeoutStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
)

type frameMsg engine.Snapshot

type framesClosedMsg struct{}

// Model implements the Bubble Tea experiment UI. It owns no experiment
// state: keys become timestamped input events, frames become snapshots.
type Model struct {
	clock  timing.Clock
	events chan<- engine.InputEvent
	frames <-chan engine.Snapshot
	cancel func()

	width  int
	height int

	snap    engine.Snapshot
	hasSnap bool
}

// NewModel constructs the experiment UI around a running engine loop.
// cancel requests the emergency stop and must be safe to call from the UI
// goroutine.
func NewModel(clock timing.Clock, events chan<- engine.InputEvent, frames <-chan engine.Snapshot, cancel func()) *Model {
	return &Model{
		clock:  clock,
		events: events,
		frames: frames,
		cancel: cancel,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitFrame()
}

func (m *Model) waitFrame() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.frames
		if !ok {
			return framesClosedMsg{}
		}
		return frameMsg(snap)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case frameMsg:
		m.snap = engine.Snapshot(msg)
		m.hasSnap = true
		return m, m.waitFrame()
	case framesClosedMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Stamp the event at the moment the key reaches us, not when the
	// engine polls it.
	at := m.clock.Now()
	var code engine.Code
	switch msg.Type {
	case tea.KeyCtrlC:
		m.cancel()
		return m, nil
	case tea.KeyCtrlR:
		code = engine.CodeRestartPractice
	case tea.KeySpace, tea.KeyEnter:
		code = engine.CodeAcknowledge
	case tea.KeyLeft:
		code = engine.CodeLeft
	case tea.KeyRight:
		code = engine.CodeRight
	case tea.KeyRunes:
		code = runeCode(msg.Runes)
	}
	if code == engine.CodeNone {
		return m, nil
	}
	m.send(engine.InputEvent{Code: code, CapturedAt: at, HasTimestamp: true})
	return m, nil
}

func runeCode(runes []rune) engine.Code {
	if len(runes) != 1 {
		return engine.CodeNone
	}
	switch runes[0] {
	case 'f', 'F':
		return engine.CodePrimary
	case 'j', 'J':
		return engine.CodeSecondary
	case ' ':
		return engine.CodeAcknowledge
	default:
		return engine.CodeNone
	}
}

func (m *Model) send(ev engine.InputEvent) {
	select {
	case m.events <- ev:
	default:
		// The engine drains every frame; a full buffer means the loop
		// stalled and the event would arrive too late to count anyway.
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.hasSnap {
		return ""
	}
	content := m.renderPhase()
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderPhase() string {
	switch m.snap.Phase {
	case engine.PhaseWelcome:
		return m.renderWelcome()
	case engine.PhasePractice, engine.PhaseExperiment:
		return m.renderTrial()
	case engine.PhaseDebrief:
		return m.renderDebrief()
	default:
		return ""
	}
}

func (m *Model) renderWelcome() string {
	lines := []string{
		promptStyle.Render("Reaction time experiment"),
		"",
		"Respond as fast as you can once a stimulus appears:",
		"",
		stimulusGlyph(engine.StimulusCircle) + "  press f",
		stimulusGlyph(engine.StimulusSquare) + "  press j",
		stimulusGlyph(engine.StimulusArrowLeft) + "  press left arrow",
		stimulusGlyph(engine.StimulusArrowRight) + "  press right arrow",
		"",
		footerStyle.Render("space to begin · ctrl+c to abort"),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTrial() string {
	if !m.snap.HasTrial {
		return ""
	}
	switch m.snap.TrialState {
	case engine.TrialFixation:
		return fixationStyle.Render("+")
	case engine.TrialResponse:
		if m.snap.ShowStimulus {
			return stimulusStyle.Render(stimulusGlyph(m.snap.Stimulus))
		}
		return ""
	case engine.TrialFeedback:
		switch m.snap.Outcome {
		case engine.OutcomeCorrect:
			return correctStyle.Render("correct")
		case engine.OutcomeIncorrect:
			return wrongStyle.Render("incorrect")
		case engine.OutcomeTimeout:
			return timeoutStyle.Render("too slow")
		}
		return ""
	default:
		return ""
	}
}

func (m *Model) renderDebrief() string {
	lines := []string{
		promptStyle.Render("Done. Thank you!"),
		"",
		fmt.Sprintf("Trials recorded   %d", m.snap.Recorded),
		fmt.Sprintf("Correct           %d", m.snap.CorrectCount),
		fmt.Sprintf("Timeouts          %d", m.snap.TimeoutCount),
	}
	if m.snap.MeanRTMs > 0 {
		lines = append(lines,
			fmt.Sprintf("Mean reaction     %.1f ms", m.snap.MeanRTMs),
			fmt.Sprintf("Fastest           %.1f ms", m.snap.MinRTMs),
			fmt.Sprintf("Slowest           %.1f ms", m.snap.MaxRTMs))
	}
	if m.snap.Degraded {
		lines = append(lines, "", warnStyle.Render("timing precision was degraded during this run"))
	}
	lines = append(lines, "", footerStyle.Render("space to finish"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	var segments []string
	switch m.snap.Phase {
	case engine.PhasePractice:
		segments = append(segments,
			fmt.Sprintf("Practice %d/%d", m.snap.TrialNum, m.snap.TrialTotal),
			"ctrl+r restart practice")
	case engine.PhaseExperiment:
		segments = append(segments, fmt.Sprintf("Trial %d/%d", m.snap.TrialNum, m.snap.TrialTotal))
	default:
		return ""
	}
	if m.snap.Degraded {
		segments = append(segments, warnStyle.Render("degraded timing"))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func stimulusGlyph(s engine.Stimulus) string {
	switch s {
	case engine.StimulusCircle:
		return "●"
	case engine.StimulusSquare:
		return "■"
	case engine.StimulusArrowLeft:
		return "◀"
	case engine.StimulusArrowRight:
		return "▶"
	default:
		return "?"
	}
}
