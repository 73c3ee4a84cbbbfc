package cmd

import (
	"fmt"

	"github.com/Iron-Ham/researchdesk/internal/config"
	"github.com/Iron-Ham/researchdesk/internal/content"
	"github.com/Iron-Ham/researchdesk/internal/event"
	"github.com/Iron-Ham/researchdesk/internal/logging"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator"
)

// desk bundles everything a command needs to drive one orchestrator.
type desk struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
	orch   *orchestrator.Orchestrator
}

// newDesk builds the logger, content provider and orchestrator from cfg.
// When logging has no directory, records go to stderr if stderrLogs is set
// and are discarded otherwise.
func newDesk(cfg *config.Config, stderrLogs bool, opts ...orchestrator.Option) (*desk, error) {
	logger, err := newLogger(cfg.Logging, stderrLogs)
	if err != nil {
		return nil, err
	}

	pack, err := content.LoadPack(cfg.Content.Pack)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to load content pack: %w", err)
	}

	bus := event.NewBus()
	bus.SetLogger(logger)

	base := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithBus(bus),
		orchestrator.WithTiming(cfg.Simulation.Timing()),
		orchestrator.WithDefaultConstraints(cfg.Session.Constraints()),
	}
	orch := orchestrator.New(content.NewStaticProvider(pack), append(base, opts...)...)

	return &desk{cfg: cfg, logger: logger, bus: bus, orch: orch}, nil
}

func newLogger(c config.LoggingConfig, stderrLogs bool) (*logging.Logger, error) {
	if !c.Enabled || (c.Dir == "" && !stderrLogs) {
		return logging.NopLogger(), nil
	}
	return logging.NewRotatingLogger(c.Dir, c.Level, logging.Rotation{
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
	})
}

// Close stops any running simulation and flushes the logger.
func (d *desk) Close() error {
	d.orch.Reset()
	return d.logger.Close()
}
