package orchestrator

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/researchdesk/internal/event"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
	"github.com/Iron-Ham/researchdesk/internal/research"
	"github.com/Iron-Ham/researchdesk/internal/simulator"
)

// AdvanceSimulatedProgress applies the next running step. Once the schedule
// is exhausted it is a no-op.
func (o *Orchestrator) AdvanceSimulatedProgress(ctx context.Context) (research.Session, error) {
	o.mu.Lock()
	if err := o.requireLocked(CmdAdvanceProgress, phase.PhaseRunning); err != nil {
		out, events, err := o.rejectLocked(CmdAdvanceProgress, err)
		o.unlockAndPublish(events)
		return out, err
	}
	events, err := o.applyStepLocked(ctx, CmdAdvanceProgress)
	if err != nil {
		out, rejected, err := o.rejectLocked(CmdAdvanceProgress, err)
		o.unlockAndPublish(append(events, rejected...))
		return out, err
	}
	out := o.snapshotLocked()
	o.unlockAndPublish(events)
	return out, nil
}

// AdvanceComputeProgress adds one monitoring step to the compute run and
// delivers once it reaches 100.
func (o *Orchestrator) AdvanceComputeProgress(ctx context.Context) (research.Session, error) {
	o.mu.Lock()
	if err := o.requireLocked(CmdAdvanceCompute, phase.PhaseMonitoring); err != nil {
		out, events, err := o.rejectLocked(CmdAdvanceCompute, err)
		o.unlockAndPublish(events)
		return out, err
	}
	events, err := o.advanceComputeLocked(ctx, CmdAdvanceCompute)
	if err != nil {
		out, rejected, err := o.rejectLocked(CmdAdvanceCompute, err)
		o.unlockAndPublish(append(events, rejected...))
		return out, err
	}
	out := o.snapshotLocked()
	o.unlockAndPublish(events)
	return out, nil
}

// applyStepLocked applies the next scripted step. The schedule cursor only
// moves once the step has been committed; on a content failure it returns
// a content.failed event and the error.
func (o *Orchestrator) applyStepLocked(ctx context.Context, cause string) ([]event.Event, error) {
	if o.schedule == nil {
		o.schedule = simulator.NewSchedule(o.script)
	}
	step, ok := o.schedule.Peek()
	if !ok {
		return nil, nil
	}

	var plan research.ExecutionPlan
	if step.EnterCompute {
		p, err := o.provider.ExecutionPlan(ctx, o.session.Clone())
		if err != nil {
			ce := o.contentError(payloadPlan, err)
			return []event.Event{event.NewContentFailedEvent(o.now(), o.session.Clone(), payloadPlan, ce)}, ce
		}
		plan = p
	}

	now := o.now()
	m := o.begin(cause)
	m.next.AgentStatuses = research.MergeAgents(m.next.AgentStatuses, step.Agents)
	for _, l := range step.Logs {
		m.log(now, l.Role, l.Level, l.Message)
	}
	seq := o.findingSeq
	for _, f := range step.Findings {
		seq++
		m.next.Findings = append(m.next.Findings, research.Finding{
			ID:      fmt.Sprintf("r%d-f%d", m.next.Round, seq),
			Kind:    f.Kind,
			Content: f.Content,
		})
	}
	if step.EnterCompute {
		if err := m.moveTo(research.ComputeStage{Plan: plan}, now); err != nil {
			return nil, err
		}
	}

	o.schedule.Advance()
	o.findingSeq = seq
	o.sessionLogger().Debug("running step applied",
		"step", o.schedule.Position(),
		"remaining", o.schedule.Remaining(),
		"cause", cause,
	)
	return o.commit(m), nil
}

// advanceComputeLocked adds one monitoring increment, delivering at 100.
func (o *Orchestrator) advanceComputeLocked(ctx context.Context, cause string) ([]event.Event, error) {
	st, ok := o.session.Stage.(research.MonitoringStage)
	if !ok {
		return nil, nil
	}
	next, done := simulator.AdvanceCompute(st.Compute, o.monitorStep)
	m := o.begin(cause)

	if !done {
		m.setAgent(research.AgentStatus{
			Role:     research.RoleCompute,
			State:    research.AgentWorking,
			Message:  fmt.Sprintf("%s (%s)", st.Plan.ComputeStage, next.CurrentItem),
			Progress: research.Progress(next.Progress),
		})
		m.next.Stage = research.MonitoringStage{Plan: st.Plan, Compute: next}
		return o.commit(m), nil
	}

	deliverable, err := o.provider.Deliverable(ctx, o.session.Clone())
	if err != nil {
		ce := o.contentError(payloadDeliverable, err)
		return []event.Event{event.NewContentFailedEvent(o.now(), o.session.Clone(), payloadDeliverable, ce)}, ce
	}
	m.setAgent(research.AgentStatus{
		Role:     research.RoleCompute,
		State:    research.AgentCompleted,
		Message:  next.IntermediateResult,
		Progress: research.Progress(100),
	})
	m.log(o.now(), research.RoleCompute, research.LogSuccess, "Compute run complete: "+next.IntermediateResult)
	plan := st.Plan
	if err := o.deliver(m, deliverable, &plan, &next); err != nil {
		return nil, err
	}
	return o.commit(m), nil
}

func (o *Orchestrator) startRunningTaskLocked() {
	o.schedule = simulator.NewSchedule(o.script)
	o.findingSeq = 0
	if o.manual {
		return
	}
	gen := o.generation
	o.task = simulator.Start(o.base, o.timing.StartDelay, o.timing.StepInterval,
		o.tick(gen, phase.PhaseRunning, TriggerRunningTick, o.applyStepLocked))
}

func (o *Orchestrator) startMonitoringTaskLocked() {
	o.monitorStep = o.timing.MonitorStep
	if o.manual {
		return
	}
	gen := o.generation
	o.task = simulator.Start(o.base, 0, o.timing.MonitorInterval,
		o.tick(gen, phase.PhaseMonitoring, TriggerMonitoringTick, o.advanceComputeLocked))
}

// tick returns a TickFunc that applies fn while the session is still the
// same generation and in the expected phase. The task ends as soon as either
// changes, fn fails or fn has nothing left to apply.
func (o *Orchestrator) tick(gen uint64, want phase.Phase, cause string, fn func(context.Context, string) ([]event.Event, error)) simulator.TickFunc {
	return func(ctx context.Context) bool {
		o.mu.Lock()
		if o.session == nil || o.generation != gen || o.session.Phase() != want {
			o.mu.Unlock()
			return false
		}
		events, err := fn(ctx, cause)
		if err != nil {
			o.sessionLogger().Error("scheduled update failed", "cause", cause, "error", err.Error())
			if o.generation == gen {
				o.task = nil
			}
			o.unlockAndPublish(events)
			return false
		}
		more := len(events) > 0 && o.session != nil && o.generation == gen && o.session.Phase() == want
		if !more && o.generation == gen {
			o.task = nil
		}
		o.unlockAndPublish(events)
		return more
	}
}
