package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
	"github.com/Iron-Ham/researchdesk/internal/research"
	"github.com/Iron-Ham/researchdesk/internal/tui/styles"
)

// Desk is the orchestrator surface the UI drives.
type Desk interface {
	Session() (research.Session, bool)
	DefaultConstraints() research.Constraints
	CreateSession(ctx context.Context, topic string, c research.Constraints) (research.Session, error)
	ConfirmBriefing(ctx context.Context, decision research.BriefingDecision) (research.Session, error)
	DecideCompute(ctx context.Context, decision research.ComputeDecision) (research.Session, error)
	SelectNextStep(ctx context.Context, optionID string) (research.Session, error)
	StopSession(ctx context.Context) (research.Session, error)
	Reset()
}

// Model is the Bubbletea model for the research desk
type Model struct {
	desk Desk

	// session is the latest snapshot, nil while in the input phase.
	session *research.Session

	topicInput  textinput.Model
	constraints research.Constraints

	spinner  spinner.Model
	progress progress.Model

	width       int
	height      int
	maxLogLines int

	// pending is the command in flight; keys are ignored until it returns.
	pending     string
	errorMsg    string
	infoMessage string
	quitting    bool

	now func() time.Time
}

// Option configures a Model.
type Option func(*Model)

// WithMaxLogLines sets how many activity log lines are shown.
func WithMaxLogLines(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.maxLogLines = n
		}
	}
}

// WithClock overrides the clock used for relative times.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// NewModel creates a model bound to desk. If desk already holds a session
// the model starts on it.
func NewModel(desk Desk, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "What should the agents research?"
	ti.CharLimit = 500
	ti.Width = 60
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.Secondary

	m := Model{
		desk:        desk,
		topicInput:  ti,
		constraints: desk.DefaultConstraints(),
		spinner:     sp,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		maxLogLines: 12,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.refresh()
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Phase returns the phase the UI is showing.
func (m Model) Phase() phase.Phase {
	if m.session == nil {
		return phase.PhaseInput
	}
	return m.session.Phase()
}

// refresh pulls the latest snapshot from the desk.
func (m *Model) refresh() {
	s, ok := m.desk.Session()
	if !ok {
		m.session = nil
		return
	}
	m.session = &s
}
