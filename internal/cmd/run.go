package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/researchdesk/internal/config"
	"github.com/Iron-Ham/researchdesk/internal/errors"
	"github.com/Iron-Ham/researchdesk/internal/event"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
	"github.com/Iron-Ham/researchdesk/internal/research"
	"github.com/Iron-Ham/researchdesk/internal/simulator"
	"github.com/Iron-Ham/researchdesk/internal/util"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a research session headlessly",
	Long: `Run a research session without the interactive desk.

The briefing is accepted as-is, the compute checkpoint is answered with
--decision, and each delivery continues with the recommended next step until
--rounds rounds have been delivered. The activity log is printed as it grows.`,
	RunE: runRun,
}

var (
	runTopic    string
	runBudget   string
	runSpeed    string
	runRigor    int
	runExclude  string
	runDecision string
	runRounds   int
	runFast     bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runTopic, "topic", "t", "", "research question (required)")
	runCmd.Flags().StringVar(&runBudget, "budget", "", "budget: low, medium, high (default from session.default_budget)")
	runCmd.Flags().StringVar(&runSpeed, "speed", "", "speed: fast, standard, deep (default from session.default_speed)")
	runCmd.Flags().IntVar(&runRigor, "rigor", 0, "rigor 1-10 (default from session.default_rigor)")
	runCmd.Flags().StringVar(&runExclude, "exclude", "", "sources or topics to exclude")
	runCmd.Flags().StringVar(&runDecision, "decision", "", "compute decision: execute, downgrade, skip (default: the plan's recommendation)")
	runCmd.Flags().IntVar(&runRounds, "rounds", 1, "number of rounds to deliver")
	runCmd.Flags().BoolVar(&runFast, "fast", false, "skip the simulated pacing")
	_ = runCmd.MarkFlagRequired("topic")
}

// runOptions are the headless session parameters.
type runOptions struct {
	Topic       string
	Constraints research.Constraints
	Decision    research.ComputeDecision // empty follows the plan's recommendation
	Rounds      int
}

// fastTiming keeps the step order but removes the waiting.
func fastTiming(step int) simulator.Timing {
	return simulator.Timing{
		StepInterval:    10 * time.Millisecond,
		MonitorInterval: 5 * time.Millisecond,
		MonitorStep:     step,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := runOptions{
		Topic:       runTopic,
		Constraints: cfg.Session.Constraints(),
		Decision:    research.ComputeDecision(runDecision),
		Rounds:      runRounds,
	}
	if runBudget != "" {
		opts.Constraints.Budget = research.Budget(runBudget)
	}
	if runSpeed != "" {
		opts.Constraints.Speed = research.Speed(runSpeed)
	}
	if runRigor != 0 {
		opts.Constraints.Rigor = runRigor
	}
	opts.Constraints.Exclusions = runExclude
	if opts.Rounds < 1 {
		return fmt.Errorf("--rounds must be at least 1")
	}

	var extra []orchestrator.Option
	if runFast {
		extra = append(extra, orchestrator.WithTiming(fastTiming(cfg.Simulation.MonitorStep)))
	}
	d, err := newDesk(cfg, true, extra...)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runHeadless(ctx, d, opts, cmd.OutOrStdout())
}

// runHeadless drives one session to completion. Bus handlers only signal the
// loop; every command is issued from the loop itself.
func runHeadless(ctx context.Context, d *desk, opts runOptions, out io.Writer) error {
	wake := make(chan struct{}, 1)
	failed := make(chan error, 1)

	wakeID := d.bus.SubscribeAll(func(event.Event) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer d.bus.Unsubscribe(wakeID)

	failID := d.bus.Subscribe(event.TypeContentFailed, func(e event.Event) {
		if cf, ok := e.(event.ContentFailedEvent); ok {
			select {
			case failed <- cf.Err:
			default:
			}
		}
	})
	defer d.bus.Unsubscribe(failID)

	s, err := d.orch.CreateSession(ctx, opts.Topic, opts.Constraints)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Session %s: %s\n", s.ID, s.Briefing.RewrittenQuestion)
	if _, err := d.orch.ConfirmBriefing(ctx, research.BriefingContinue); err != nil {
		return err
	}

	printed := 0
	handled := ""
	for {
		s, ok := d.orch.Session()
		if !ok {
			return errors.ErrNoSession
		}
		printed = printLogs(out, s.Logs, printed)

		key := fmt.Sprintf("%d/%s", s.Round, s.Phase())
		if key != handled {
			handled = key
			done, err := step(ctx, d.orch, s, opts, out)
			if err != nil || done {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			_, _ = d.orch.StopSession(context.Background())
			return ctx.Err()
		case err := <-failed:
			return fmt.Errorf("simulation stopped: %w", err)
		case <-wake:
		}
	}
}

// step answers the decision the session is waiting on, if any. It reports
// done once the last requested round is delivered.
func step(ctx context.Context, orch *orchestrator.Orchestrator, s research.Session, opts runOptions, out io.Writer) (bool, error) {
	if !s.Phase().AwaitsDecision() {
		return false, nil
	}
	switch s.Phase() {
	case phase.PhaseCompute:
		plan, _ := s.ExecutionPlan()
		decision := opts.Decision
		if decision == "" {
			decision = plan.Recommendation
		}
		fmt.Fprintf(out, "Compute checkpoint: %s -> %s\n", plan.Description, decision)
		_, err := orch.DecideCompute(ctx, decision)
		return false, err

	case phase.PhaseDelivery:
		d, _ := s.Deliverable()
		printDeliverable(out, s.Round, d)
		if s.Round >= opts.Rounds {
			return true, nil
		}
		opt := nextOption(d)
		fmt.Fprintf(out, "Continuing with [%s] %s\n", opt.ID, opt.Title)
		_, err := orch.SelectNextStep(ctx, opt.ID)
		return false, err
	}
	return false, nil
}

// nextOption picks the recommended next step, or the first one.
func nextOption(d research.Deliverable) research.NextStepOption {
	for _, opt := range d.NextSteps {
		if opt.Recommended {
			return opt
		}
	}
	if len(d.NextSteps) > 0 {
		return d.NextSteps[0]
	}
	return research.NextStepOption{}
}

func printLogs(out io.Writer, logs []research.LogEntry, printed int) int {
	if printed > len(logs) {
		printed = 0
	}
	for _, l := range logs[printed:] {
		fmt.Fprintf(out, "[%s] %-9s %s\n", l.Time.Format("15:04:05"), l.Role, util.SingleLine(l.Message))
	}
	return len(logs)
}

func printDeliverable(out io.Writer, round int, d research.Deliverable) {
	fmt.Fprintf(out, "\nRound %d deliverable (%d%% complete)\n", round, d.CompletionRate)
	for _, c := range d.Conclusions {
		mark := " "
		if c.Verified {
			mark = "x"
		}
		fmt.Fprintf(out, "  [%s] %s (%s confidence)\n", mark, c.Content, c.Confidence)
	}
	for _, p := range d.PendingItems {
		fmt.Fprintf(out, "  pending: %s\n", p)
	}
	for _, opt := range d.NextSteps {
		rec := ""
		if opt.Recommended {
			rec = " (recommended)"
		}
		fmt.Fprintf(out, "  next [%s] %s%s\n", opt.ID, opt.Title, rec)
	}
	fmt.Fprintln(out)
}
