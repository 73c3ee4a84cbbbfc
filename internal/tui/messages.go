package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/researchdesk/internal/research"
)

// sessionEventMsg is sent by the bus bridge whenever the orchestrator
// publishes an event.
type sessionEventMsg struct {
	eventType string
}

// commandResultMsg carries the outcome of an orchestrator command run off
// the UI goroutine.
type commandResultMsg struct {
	command string
	session research.Session
	err     error
}

// runCommand returns a tea.Cmd that executes fn and reports the result.
func runCommand(command string, fn func(ctx context.Context) (research.Session, error)) tea.Cmd {
	return func() tea.Msg {
		s, err := fn(context.Background())
		return commandResultMsg{command: command, session: s, err: err}
	}
}

// resetMsg reports that the session was discarded.
type resetMsg struct{}
