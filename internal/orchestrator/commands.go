package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/researchdesk/internal/errors"
	"github.com/Iron-Ham/researchdesk/internal/event"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
	"github.com/Iron-Ham/researchdesk/internal/research"
	"github.com/Iron-Ham/researchdesk/internal/simulator"
)

// Messages written when a round starts.
const (
	firstRoundLog  = "Starting task decomposition..."
	firstRoundLead = "Decomposing the research question..."
	laterRoundLead = "Planning the next round..."
	stopLog        = "Session stopped by user, wrapping up with current results"
)

// Reasons reported when a simulation task is cancelled.
const (
	cancelReplaced = "replaced"
	cancelStopped  = "stopped"
	cancelReset    = "reset"
)

// Payload kinds reported in content errors.
const (
	payloadBriefing    = "briefing"
	payloadPlan        = "execution_plan"
	payloadDeliverable = "deliverable"
)

// CreateSession discards any existing session and starts a new one in the
// briefing phase. The previous session is kept if the topic is blank, the
// constraints are invalid or the briefing cannot be produced.
func (o *Orchestrator) CreateSession(ctx context.Context, topic string, constraints research.Constraints) (research.Session, error) {
	o.mu.Lock()
	out, events, err := o.createSessionLocked(ctx, topic, constraints)
	o.unlockAndPublish(events)
	return out, err
}

func (o *Orchestrator) createSessionLocked(ctx context.Context, topic string, c research.Constraints) (research.Session, []event.Event, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return o.rejectLocked(CmdCreateSession, errors.ErrEmptyTopic)
	}
	if err := c.Validate(); err != nil {
		return o.rejectLocked(CmdCreateSession, err)
	}

	briefing, err := o.provider.Briefing(ctx, topic, c)
	if err != nil {
		return o.rejectLocked(CmdCreateSession, o.contentError(payloadBriefing, err))
	}

	now := o.now()
	tr := phase.Transition{
		From:      phase.PhaseInput,
		To:        phase.PhaseBriefing,
		Timestamp: now,
		Trigger:   CmdCreateSession,
	}
	if err := phase.Check(tr.From, tr.To); err != nil {
		return o.rejectLocked(CmdCreateSession, err)
	}

	var events []event.Event
	var replaced string
	if o.session != nil {
		replaced = o.session.ID
	}
	gen := o.generation
	if o.invalidateLocked() {
		events = append(events, event.NewSimulationCancelledEvent(now, replaced, gen, cancelReplaced))
	}

	s := research.Session{
		ID:          o.newID(),
		Topic:       topic,
		Constraints: c,
		Briefing:    briefing,
		Stage:       research.BriefingStage{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	o.session = &s
	o.history = phase.History{tr}
	o.schedule = nil
	o.findingSeq = 0

	o.sessionLogger().Info("session created",
		"topic", topic,
		"budget", string(c.Budget),
		"speed", string(c.Speed),
		"rigor", c.Rigor,
		"replaced", replaced,
	)

	snap := s.Clone()
	events = append(events,
		event.NewSessionCreatedEvent(now, snap, replaced),
		event.NewPhaseChangedEvent(snap, tr),
	)
	return snap, events, nil
}

// ConfirmBriefing answers the briefing checkpoint. Continue starts round 1.
// Adjust is acknowledged with an event and changes nothing.
func (o *Orchestrator) ConfirmBriefing(ctx context.Context, decision research.BriefingDecision) (research.Session, error) {
	o.mu.Lock()
	out, events, err := o.confirmBriefingLocked(decision)
	o.unlockAndPublish(events)
	return out, err
}

func (o *Orchestrator) confirmBriefingLocked(decision research.BriefingDecision) (research.Session, []event.Event, error) {
	if err := o.requireLocked(CmdConfirmBriefing, phase.PhaseBriefing); err != nil {
		return o.rejectLocked(CmdConfirmBriefing, err)
	}

	switch decision {
	case research.BriefingContinue:
		m := o.begin(CmdConfirmBriefing)
		if err := o.startRound(m, 1, firstRoundLog); err != nil {
			return o.rejectLocked(CmdConfirmBriefing, err)
		}
		events := o.commit(m)
		o.startRunningTaskLocked()
		return o.snapshotLocked(), events, nil

	case research.BriefingAdjust:
		o.sessionLogger().Debug("briefing adjustment requested")
		snap := o.snapshotLocked()
		return snap, []event.Event{event.NewAdjustRequestedEvent(o.now(), snap)}, nil

	default:
		return o.rejectLocked(CmdConfirmBriefing, errors.NewValidationError("must be one of: continue, adjust").
			WithField("decision").WithValue(string(decision)))
	}
}

// startRound moves m into running for the given round with a fresh roster.
func (o *Orchestrator) startRound(m *mutation, round int, announcement string) error {
	lead := firstRoundLead
	if round > 1 {
		lead = laterRoundLead
	}
	m.next.Round = round
	m.next.AgentStatuses = research.InitialRoster(lead)
	if err := m.moveTo(research.RunningStage{}, o.now()); err != nil {
		return err
	}
	m.log(o.now(), research.RolePlanner, research.LogInfo, announcement)
	return nil
}

// DecideCompute answers the compute checkpoint. Execute starts the compute
// run; downgrade and skip go straight to delivery.
func (o *Orchestrator) DecideCompute(ctx context.Context, decision research.ComputeDecision) (research.Session, error) {
	o.mu.Lock()
	out, events, err := o.decideComputeLocked(ctx, decision)
	o.unlockAndPublish(events)
	return out, err
}

func (o *Orchestrator) decideComputeLocked(ctx context.Context, decision research.ComputeDecision) (research.Session, []event.Event, error) {
	if err := o.requireLocked(CmdDecideCompute, phase.PhaseCompute); err != nil {
		return o.rejectLocked(CmdDecideCompute, err)
	}
	plan, _ := o.session.ExecutionPlan()
	m := o.begin(CmdDecideCompute)
	now := o.now()

	switch decision {
	case research.ComputeExecute:
		status := simulator.StartCompute(plan)
		m.setAgent(research.AgentStatus{
			Role:     research.RoleCompute,
			State:    research.AgentWorking,
			Message:  "Running: " + plan.ComputeStage,
			Progress: research.Progress(0),
		})
		m.log(now, research.RoleCompute, research.LogInfo, "Compute run started: "+plan.ComputeStage)
		if err := m.moveTo(research.MonitoringStage{Plan: plan, Compute: status}, now); err != nil {
			return o.rejectLocked(CmdDecideCompute, err)
		}
		events := o.commit(m)
		o.startMonitoringTaskLocked()
		return o.snapshotLocked(), events, nil

	case research.ComputeDowngrade, research.ComputeSkip:
		deliverable, err := o.provider.Deliverable(ctx, o.session.Clone())
		if err != nil {
			return o.rejectLocked(CmdDecideCompute, o.contentError(payloadDeliverable, err))
		}
		if decision == research.ComputeDowngrade {
			m.setAgent(research.AgentStatus{Role: research.RoleCompute, State: research.AgentCompleted, Message: "Ran downgraded plan"})
			m.log(now, research.RoleCompute, research.LogInfo, "Downgraded compute: "+plan.DowngradePlan)
		} else {
			m.setAgent(research.AgentStatus{Role: research.RoleCompute, State: research.AgentIdle, Message: "Skipped"})
			m.log(now, research.RoleCompute, research.LogWarning, "Compute run skipped, delivering without it")
		}
		p := plan
		if err := o.deliver(m, deliverable, &p, nil); err != nil {
			return o.rejectLocked(CmdDecideCompute, err)
		}
		events := o.commit(m)
		return o.snapshotLocked(), events, nil

	default:
		return o.rejectLocked(CmdDecideCompute, errors.NewValidationError("must be one of: execute, downgrade, skip").
			WithField("decision").WithValue(string(decision)))
	}
}

// deliver moves m into delivery.
func (o *Orchestrator) deliver(m *mutation, d research.Deliverable, plan *research.ExecutionPlan, compute *research.ComputeStatus) error {
	now := o.now()
	if err := m.moveTo(research.DeliveryStage{Deliverable: d, Plan: plan, Compute: compute}, now); err != nil {
		return err
	}
	m.log(now, research.RolePlanner, research.LogSuccess,
		fmt.Sprintf("Round %d deliverable ready (%d%% complete)", m.next.Round, d.CompletionRate))
	return nil
}

// SelectNextStep starts the next round from one of the deliverable's options.
func (o *Orchestrator) SelectNextStep(ctx context.Context, optionID string) (research.Session, error) {
	o.mu.Lock()
	out, events, err := o.selectNextStepLocked(optionID)
	o.unlockAndPublish(events)
	return out, err
}

func (o *Orchestrator) selectNextStepLocked(optionID string) (research.Session, []event.Event, error) {
	if err := o.requireLocked(CmdSelectNextStep, phase.PhaseDelivery); err != nil {
		return o.rejectLocked(CmdSelectNextStep, err)
	}
	deliverable, _ := o.session.Deliverable()
	opt, ok := deliverable.NextStep(optionID)
	if !ok {
		return o.rejectLocked(CmdSelectNextStep, errors.Wrapf(errors.ErrUnknownOption, "option %q", optionID))
	}

	m := o.begin(CmdSelectNextStep)
	d := deliverable.Clone()
	m.next.LastDelivered = &d
	round := m.next.Round + 1
	if err := o.startRound(m, round, fmt.Sprintf("Starting round %d: %s", round, opt.Title)); err != nil {
		return o.rejectLocked(CmdSelectNextStep, err)
	}
	events := o.commit(m)
	o.startRunningTaskLocked()
	return o.snapshotLocked(), events, nil
}

// StopSession ends the current round early and delivers what exists so far.
func (o *Orchestrator) StopSession(ctx context.Context) (research.Session, error) {
	o.mu.Lock()
	out, events, err := o.stopSessionLocked(ctx)
	o.unlockAndPublish(events)
	return out, err
}

func (o *Orchestrator) stopSessionLocked(ctx context.Context) (research.Session, []event.Event, error) {
	err := o.requireWhereLocked(CmdStopSession, phase.Phase.IsStoppable)
	if err != nil {
		return o.rejectLocked(CmdStopSession, err)
	}
	deliverable, err := o.provider.Deliverable(ctx, o.session.Clone())
	if err != nil {
		return o.rejectLocked(CmdStopSession, o.contentError(payloadDeliverable, err))
	}

	var plan *research.ExecutionPlan
	if p, ok := o.session.ExecutionPlan(); ok {
		plan = &p
	}
	var compute *research.ComputeStatus
	if c, ok := o.session.ComputeStatus(); ok {
		compute = &c
	}

	m := o.begin(CmdStopSession)
	m.log(o.now(), research.RolePlanner, research.LogWarning, stopLog)
	if err := o.deliver(m, deliverable, plan, compute); err != nil {
		return o.rejectLocked(CmdStopSession, err)
	}

	var events []event.Event
	if o.task != nil {
		events = append(events, event.NewSimulationCancelledEvent(o.now(), o.session.ID, o.generation, cancelStopped))
	}
	events = append(events, o.commit(m)...)
	return o.snapshotLocked(), events, nil
}

// Reset drops the session and cancels any running simulation.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.session == nil {
		o.invalidateLocked()
		o.mu.Unlock()
		return
	}

	id := o.session.ID
	now := o.now()
	gen := o.generation
	var events []event.Event
	if o.invalidateLocked() {
		events = append(events, event.NewSimulationCancelledEvent(now, id, gen, cancelReset))
	}
	o.sessionLogger().Info("session reset")
	o.session = nil
	o.history = nil
	o.schedule = nil
	o.findingSeq = 0
	events = append(events, event.NewSessionResetEvent(now, id))
	o.unlockAndPublish(events)
}
