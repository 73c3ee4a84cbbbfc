package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/researchdesk/internal/config"
	"github.com/Iron-Ham/researchdesk/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research desk over HTTP",
	Long: `Serve the research desk as a JSON API with a websocket event stream.

Endpoints:
  GET    /api/session          current session snapshot
  POST   /api/session          {"topic": "...", "constraints": {...}}
  DELETE /api/session          discard the session
  GET    /api/session/history  phase transitions
  POST   /api/session/briefing {"decision": "continue" | "adjust"}
  POST   /api/session/compute  {"decision": "execute" | "downgrade" | "skip"}
  POST   /api/session/next     {"option_id": "1"}
  POST   /api/session/stop
  GET    /api/events           websocket stream of session events`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default from web.addr)")
	_ = viper.BindPFlag("web.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	d, err := newDesk(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	config.Watch(func(c *config.Config) {
		d.orch.SetTiming(c.Simulation.Timing())
	}, func(err error) {
		d.logger.Warn("ignoring invalid config change", "error", err.Error())
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(d.orch, d.bus, d.logger)
	return srv.Run(ctx, cfg.Web.Addr, func(addr net.Addr) {
		fmt.Fprintf(cmd.OutOrStdout(), "Research desk listening on http://%s\n", addr)
	})
}
