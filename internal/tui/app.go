// Package tui is the terminal interface for a research session.
package tui

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/researchdesk/internal/event"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	bus     *event.Bus
}

// New creates a new TUI application. Events published on bus refresh the view.
func New(desk Desk, bus *event.Bus, opts ...Option) *App {
	return &App{
		model: NewModel(desk, opts...),
		bus:   bus,
	}
}

// Run starts the TUI application
func (a *App) Run() error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	// Forward orchestrator events into the program. Send is a no-op once
	// the program has exited.
	if a.bus != nil {
		subID := a.bus.SubscribeAll(func(e event.Event) {
			a.program.Send(sessionEventMsg{eventType: e.EventType()})
		})
		defer a.bus.Unsubscribe(subID)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		if _, ok := <-sigChan; ok {
			a.program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()

	signal.Stop(sigChan)
	close(sigChan)
	return err
}
