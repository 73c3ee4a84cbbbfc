// Package orchestrator owns the research session and its phase state machine.
//
// An Orchestrator holds at most one session. Every command validates the
// current phase against the transition table in the phase package, applies
// its change to a working copy and commits only on success, so a rejected
// command leaves the session exactly as it was. Simulated progress runs on
// simulator tasks that re-enter the orchestrator through the same lock and
// discard themselves once the session has moved on.
package orchestrator

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/researchdesk/internal/content"
	"github.com/Iron-Ham/researchdesk/internal/errors"
	"github.com/Iron-Ham/researchdesk/internal/event"
	"github.com/Iron-Ham/researchdesk/internal/logging"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
	"github.com/Iron-Ham/researchdesk/internal/research"
	"github.com/Iron-Ham/researchdesk/internal/simulator"
)

// Command names, used in errors, logs and events.
const (
	CmdCreateSession   = "create_session"
	CmdConfirmBriefing = "confirm_briefing"
	CmdAdvanceProgress = "advance_progress"
	CmdDecideCompute   = "decide_compute"
	CmdAdvanceCompute  = "advance_compute"
	CmdSelectNextStep  = "select_next_step"
	CmdStopSession     = "stop_session"
	CmdReset           = "reset"
)

// Triggers for transitions and updates that no command caused directly.
const (
	TriggerRunningTick    = "running_tick"
	TriggerMonitoringTick = "monitoring_tick"
)

// Orchestrator manages a single research session.
type Orchestrator struct {
	provider content.Provider
	logger   *logging.Logger
	bus      *event.Bus
	now      func() time.Time
	newID    func() string
	script   simulator.Script
	manual   bool
	defaults research.Constraints

	// base parents every simulator task so that tasks outlive the
	// request that started them.
	base context.Context

	mu         sync.Mutex
	timing     simulator.Timing
	session    *research.Session
	history    phase.History
	schedule   *simulator.Schedule
	task       *simulator.Task
	generation uint64
	findingSeq int
	// monitorStep is the increment of the current monitoring run, fixed
	// when the run starts.
	monitorStep int

	// publishMu is taken before mu is released so events leave in the order
	// their mutations were committed.
	publishMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBus sets the bus that session events are published to.
func WithBus(b *event.Bus) Option {
	return func(o *Orchestrator) {
		o.bus = b
	}
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTiming sets the pace of simulated progress.
func WithTiming(t simulator.Timing) Option {
	return func(o *Orchestrator) {
		o.timing = t
	}
}

// WithScript replaces the running schedule applied each round.
func WithScript(s simulator.Script) Option {
	return func(o *Orchestrator) {
		o.script = s
	}
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// WithManualProgress disables timer tasks. Progress then advances only
// through AdvanceSimulatedProgress and AdvanceComputeProgress.
func WithManualProgress() Option {
	return func(o *Orchestrator) {
		o.manual = true
	}
}

// WithDefaultConstraints sets the constraints returned by DefaultConstraints.
func WithDefaultConstraints(c research.Constraints) Option {
	return func(o *Orchestrator) {
		o.defaults = c
	}
}

// New creates an Orchestrator backed by provider. A nil provider uses the
// built-in content pack.
func New(provider content.Provider, opts ...Option) *Orchestrator {
	if provider == nil {
		provider = content.NewStaticProvider(nil)
	}
	o := &Orchestrator{
		provider: provider,
		logger:   logging.NopLogger(),
		now:      time.Now,
		newID:    func() string { return "session-" + uuid.NewString() },
		script:   simulator.DefaultScript(),
		defaults: research.DefaultConstraints(),
		timing:   simulator.DefaultTiming(),
		base:     context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Session returns a deep copy of the current session.
func (o *Orchestrator) Session() (research.Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return research.Session{}, false
	}
	return o.session.Clone(), true
}

// Phase returns the current phase, or PhaseInput when there is no session.
func (o *Orchestrator) Phase() phase.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phaseLocked()
}

// History returns the transitions applied to the current session.
func (o *Orchestrator) History() phase.History {
	o.mu.Lock()
	defer o.mu.Unlock()
	return phase.History(slices.Clone(o.history))
}

// DefaultConstraints returns the constraints new sessions start from.
func (o *Orchestrator) DefaultConstraints() research.Constraints {
	return o.defaults
}

// Timing returns the current simulation pace.
func (o *Orchestrator) Timing() simulator.Timing {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.timing
}

// SetTiming changes the simulation pace. Tasks already running keep their
// pace and a monitoring run keeps its step; the next task started uses t.
func (o *Orchestrator) SetTiming(t simulator.Timing) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timing = t
	o.logger.Info("simulation timing updated",
		"start_delay", t.StartDelay.String(),
		"step_interval", t.StepInterval.String(),
		"monitor_interval", t.MonitorInterval.String(),
		"monitor_step", t.MonitorStep,
	)
}

func (o *Orchestrator) phaseLocked() phase.Phase {
	if o.session == nil {
		return phase.PhaseInput
	}
	return o.session.Phase()
}

func (o *Orchestrator) snapshotLocked() research.Session {
	if o.session == nil {
		return research.Session{}
	}
	return o.session.Clone()
}

func (o *Orchestrator) sessionLogger() *logging.Logger {
	if o.session == nil {
		return o.logger
	}
	return o.logger.WithSession(o.session.ID).
		WithPhase(o.session.Phase().String()).
		WithRound(o.session.Round)
}

// unlockAndPublish releases mu and publishes events. It must be called with
// mu held.
func (o *Orchestrator) unlockAndPublish(events []event.Event) {
	if o.bus == nil || len(events) == 0 {
		o.mu.Unlock()
		return
	}
	o.publishMu.Lock()
	o.mu.Unlock()
	defer o.publishMu.Unlock()
	for _, e := range events {
		o.bus.Publish(e)
	}
}

// mutation is a pending change to the session. Commands edit next and call
// commit; an abandoned mutation leaves the session untouched.
type mutation struct {
	next        research.Session
	transitions []phase.Transition
	cause       string
}

func (o *Orchestrator) begin(cause string) *mutation {
	return &mutation{next: o.session.Clone(), cause: cause}
}

// moveTo sets the next stage, checked against the transition table.
func (m *mutation) moveTo(stage research.Stage, at time.Time) error {
	from := m.next.Phase()
	if err := phase.Check(from, stage.Phase()); err != nil {
		return err
	}
	m.next.Stage = stage
	m.transitions = append(m.transitions, phase.Transition{
		From:      from,
		To:        stage.Phase(),
		Round:     m.next.Round,
		Timestamp: at,
		Trigger:   m.cause,
	})
	return nil
}

func (m *mutation) log(at time.Time, role research.AgentRole, level research.LogLevel, msg string) {
	m.next.Logs = append(m.next.Logs, research.LogEntry{Time: at, Role: role, Message: msg, Level: level})
}

func (m *mutation) setAgent(status research.AgentStatus) {
	m.next.AgentStatuses = research.MergeAgents(m.next.AgentStatuses, []research.AgentStatus{status})
}

// commit installs the mutation and returns the events describing it. Any
// phase change invalidates the current generation and cancels its task.
func (o *Orchestrator) commit(m *mutation) []event.Event {
	now := o.now()
	m.next.UpdatedAt = now
	next := m.next
	o.session = &next
	snap := next.Clone()

	if len(m.transitions) == 0 {
		return []event.Event{event.NewSessionUpdatedEvent(now, snap, m.cause)}
	}

	o.history = append(o.history, m.transitions...)
	o.invalidateLocked()

	events := make([]event.Event, 0, len(m.transitions))
	log := o.sessionLogger()
	for _, tr := range m.transitions {
		log.Info("phase transition",
			"from", tr.From.String(),
			"to", tr.To.String(),
			"trigger", tr.Trigger,
		)
		events = append(events, event.NewPhaseChangedEvent(snap, tr))
	}
	return events
}

// invalidateLocked bumps the generation and cancels the active task, if any.
// It reports whether a task was cancelled.
func (o *Orchestrator) invalidateLocked() bool {
	o.generation++
	if o.task == nil {
		return false
	}
	o.task.Cancel()
	o.task = nil
	return true
}

// rejectLocked wraps cause as a CommandError and reports it.
func (o *Orchestrator) rejectLocked(command string, cause error) (research.Session, []event.Event, error) {
	p := o.phaseLocked()
	err := errors.NewCommandError(command, cause).WithPhase(p.String())
	if o.session != nil {
		err = err.WithSessionID(o.session.ID)
	}

	log := o.sessionLogger()
	if errors.GetSeverity(err) >= errors.SeverityError {
		log.Error("command failed", "command", command, "error", cause.Error(), "retryable", errors.IsRetryable(err))
	} else {
		log.Warn("command rejected", "command", command, "error", cause.Error())
	}

	events := []event.Event{event.NewCommandRejectedEvent(o.now(), command, p, err)}
	return o.snapshotLocked(), events, err
}

// requireLocked rejects command unless a session exists in one of allowed.
func (o *Orchestrator) requireLocked(command string, allowed ...phase.Phase) error {
	return o.requireWhereLocked(command, func(p phase.Phase) bool {
		return slices.Contains(allowed, p)
	})
}

// requireWhereLocked rejects command unless a session exists in a phase
// accepted by ok.
func (o *Orchestrator) requireWhereLocked(command string, ok func(phase.Phase) bool) error {
	if o.session == nil {
		return errors.ErrNoSession
	}
	current := o.session.Phase()
	if ok(current) {
		return nil
	}
	return errors.Wrapf(errors.ErrInvalidTransition, "%s is not allowed in phase %s", command, current)
}

func (o *Orchestrator) contentError(payload string, err error) *errors.ContentError {
	ce := errors.NewContentError(payload, err)
	if o.session != nil {
		ce = ce.WithSessionID(o.session.ID)
	}
	return ce
}
