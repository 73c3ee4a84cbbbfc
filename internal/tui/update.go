package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/researchdesk/internal/errors"
	"github.com/Iron-Ham/researchdesk/internal/event"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
	"github.com/Iron-Ham/researchdesk/internal/research"
)

const cmdReset = "reset"

var (
	budgets = []research.Budget{research.BudgetLow, research.BudgetMedium, research.BudgetHigh}
	speeds  = []research.Speed{research.SpeedFast, research.SpeedStandard, research.SpeedDeep}
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 20; w > 10 {
			m.progress.Width = min(w, 60)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionEventMsg:
		if msg.eventType == event.TypeAdjustRequested {
			m.infoMessage = "Adjustment noted. Press c to continue with the current briefing."
		}
		m.refresh()
		return m, m.focusForPhase()

	case commandResultMsg:
		m.pending = ""
		if msg.err != nil {
			m.errorMsg = describeError(msg.err)
		} else {
			m.errorMsg = ""
		}
		m.refresh()
		return m, m.focusForPhase()

	case resetMsg:
		m.pending = ""
		m.errorMsg = ""
		m.infoMessage = ""
		m.refresh()
		return m, m.focusForPhase()
	}

	if m.Phase() == phase.PhaseInput {
		var cmd tea.Cmd
		m.topicInput, cmd = m.topicInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// focusForPhase focuses the topic input whenever the UI is back in the input
// phase.
func (m *Model) focusForPhase() tea.Cmd {
	if m.Phase() == phase.PhaseInput {
		return m.topicInput.Focus()
	}
	m.topicInput.Blur()
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.pending != "" {
		return m, nil
	}

	if m.Phase() == phase.PhaseInput {
		return m.handleInputKey(msg)
	}

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "x":
		return m.start(cmdReset, nil)
	}

	switch m.Phase() {
	case phase.PhaseBriefing:
		switch key {
		case "c":
			m.infoMessage = ""
			return m.start(orchestrator.CmdConfirmBriefing, func(ctx context.Context) (research.Session, error) {
				return m.desk.ConfirmBriefing(ctx, research.BriefingContinue)
			})
		case "a":
			return m.start(orchestrator.CmdConfirmBriefing, func(ctx context.Context) (research.Session, error) {
				return m.desk.ConfirmBriefing(ctx, research.BriefingAdjust)
			})
		}

	case phase.PhaseRunning, phase.PhaseMonitoring:
		if key == "s" {
			return m.start(orchestrator.CmdStopSession, m.desk.StopSession)
		}

	case phase.PhaseCompute:
		var decision research.ComputeDecision
		switch key {
		case "e":
			decision = research.ComputeExecute
		case "d":
			decision = research.ComputeDowngrade
		case "k":
			decision = research.ComputeSkip
		case "s":
			return m.start(orchestrator.CmdStopSession, m.desk.StopSession)
		}
		if decision != "" {
			return m.start(orchestrator.CmdDecideCompute, func(ctx context.Context) (research.Session, error) {
				return m.desk.DecideCompute(ctx, decision)
			})
		}

	case phase.PhaseDelivery:
		if key == "n" {
			return m.start(cmdReset, nil)
		}
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			opt, ok := m.nextStepAt(int(key[0] - '1'))
			if !ok {
				m.errorMsg = "no next step " + key
				m.infoMessage = ""
				return m, nil
			}
			return m.start(orchestrator.CmdSelectNextStep, func(ctx context.Context) (research.Session, error) {
				return m.desk.SelectNextStep(ctx, opt.ID)
			})
		}
	}
	return m, nil
}

// describeError turns a command failure into the status line text.
func describeError(err error) string {
	msg := err.Error()
	if !errors.IsUserFacing(err) {
		msg = "unexpected failure: " + msg
	}
	if errors.IsRetryable(err) {
		msg += " (press the key again to retry)"
	}
	return msg
}

// nextStepAt returns the delivery option shown at position i (0-based).
func (m Model) nextStepAt(i int) (research.NextStepOption, bool) {
	if m.session == nil {
		return research.NextStepOption{}, false
	}
	d, ok := m.session.Deliverable()
	if !ok || i < 0 || i >= len(d.NextSteps) {
		return research.NextStepOption{}, false
	}
	return d.NextSteps[i], true
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		topic := strings.TrimSpace(m.topicInput.Value())
		c := m.constraints
		return m.start(orchestrator.CmdCreateSession, func(ctx context.Context) (research.Session, error) {
			return m.desk.CreateSession(ctx, topic, c)
		})
	case "tab":
		m.constraints.Budget = cycle(budgets, m.constraints.Budget)
		return m, nil
	case "shift+tab":
		m.constraints.Speed = cycle(speeds, m.constraints.Speed)
		return m, nil
	case "up":
		if m.constraints.Rigor < research.MaxRigor {
			m.constraints.Rigor++
		}
		return m, nil
	case "down":
		if m.constraints.Rigor > research.MinRigor {
			m.constraints.Rigor--
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.topicInput, cmd = m.topicInput.Update(msg)
	return m, cmd
}

// start marks command as pending and returns the tea.Cmd that runs it. A nil
// fn means reset.
func (m Model) start(command string, fn func(ctx context.Context) (research.Session, error)) (tea.Model, tea.Cmd) {
	m.pending = command
	m.errorMsg = ""
	if fn == nil {
		desk := m.desk
		m.topicInput.Reset()
		return m, func() tea.Msg {
			desk.Reset()
			return resetMsg{}
		}
	}
	return m, runCommand(command, fn)
}

func cycle[T comparable](values []T, cur T) T {
	for i, v := range values {
		if v == cur {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}
