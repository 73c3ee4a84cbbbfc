package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/researchdesk/internal/config"
	"github.com/Iron-Ham/researchdesk/internal/tui"
)

func runTUI(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	d, err := newDesk(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	config.Watch(func(c *config.Config) {
		d.orch.SetTiming(c.Simulation.Timing())
	}, func(err error) {
		d.logger.Warn("ignoring invalid config change", "error", err.Error())
	})

	app := tui.New(d.orch, d.bus, tui.WithMaxLogLines(cfg.TUI.MaxLogLines))
	return app.Run()
}
