package research

import (
	"slices"
	"time"

	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
)

// Stage carries exactly the payload valid for the session's current phase.
// The concrete types are BriefingStage, RunningStage, ComputeStage,
// MonitoringStage and DeliveryStage.
type Stage interface {
	Phase() phase.Phase
	clone() Stage
}

// BriefingStage: the briefing is shown and awaits confirmation.
type BriefingStage struct{}

// RunningStage: agents are working through the simulated schedule.
type RunningStage struct{}

// ComputeStage: the execution plan is offered and awaits a decision.
type ComputeStage struct {
	Plan ExecutionPlan
}

// MonitoringStage: the compute run is in progress.
type MonitoringStage struct {
	Plan    ExecutionPlan
	Compute ComputeStatus
}

// DeliveryStage: the round's deliverable is available.
// Plan is nil if the round was stopped before the compute checkpoint.
// Compute is nil unless the compute run was executed.
type DeliveryStage struct {
	Deliverable Deliverable
	Plan        *ExecutionPlan
	Compute     *ComputeStatus
}

func (BriefingStage) Phase() phase.Phase   { return phase.PhaseBriefing }
func (RunningStage) Phase() phase.Phase    { return phase.PhaseRunning }
func (ComputeStage) Phase() phase.Phase    { return phase.PhaseCompute }
func (MonitoringStage) Phase() phase.Phase { return phase.PhaseMonitoring }
func (DeliveryStage) Phase() phase.Phase   { return phase.PhaseDelivery }

func (s BriefingStage) clone() Stage { return s }
func (s RunningStage) clone() Stage  { return s }

func (s ComputeStage) clone() Stage {
	return ComputeStage{Plan: s.Plan.Clone()}
}

func (s MonitoringStage) clone() Stage {
	return MonitoringStage{Plan: s.Plan.Clone(), Compute: s.Compute}
}

func (s DeliveryStage) clone() Stage {
	out := DeliveryStage{Deliverable: s.Deliverable.Clone()}
	if s.Plan != nil {
		p := s.Plan.Clone()
		out.Plan = &p
	}
	if s.Compute != nil {
		c := *s.Compute
		out.Compute = &c
	}
	return out
}

// Session is one research workflow instance. Values handed out by the
// orchestrator are deep copies and never change after they are returned.
type Session struct {
	ID            string
	Topic         string
	Constraints   Constraints
	Round         int
	AgentStatuses []AgentStatus
	Logs          []LogEntry
	Findings      []Finding
	Briefing      Briefing
	Stage         Stage
	LastDelivered *Deliverable
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Phase returns the phase of the current stage.
func (s Session) Phase() phase.Phase {
	if s.Stage == nil {
		return phase.PhaseInput
	}
	return s.Stage.Phase()
}

// ExecutionPlan returns the plan for the current round, if one was produced.
func (s Session) ExecutionPlan() (ExecutionPlan, bool) {
	switch st := s.Stage.(type) {
	case ComputeStage:
		return st.Plan, true
	case MonitoringStage:
		return st.Plan, true
	case DeliveryStage:
		if st.Plan != nil {
			return *st.Plan, true
		}
	}
	return ExecutionPlan{}, false
}

// ComputeStatus returns the compute run status, defined only on the execute path.
func (s Session) ComputeStatus() (ComputeStatus, bool) {
	switch st := s.Stage.(type) {
	case MonitoringStage:
		return st.Compute, true
	case DeliveryStage:
		if st.Compute != nil {
			return *st.Compute, true
		}
	}
	return ComputeStatus{}, false
}

// Deliverable returns the deliverable of the current round when in delivery,
// otherwise the most recently delivered one.
func (s Session) Deliverable() (Deliverable, bool) {
	if st, ok := s.Stage.(DeliveryStage); ok {
		return st.Deliverable, true
	}
	if s.LastDelivered != nil {
		return *s.LastDelivered, true
	}
	return Deliverable{}, false
}

// Agent returns the status slot for role.
func (s Session) Agent(role AgentRole) (AgentStatus, bool) {
	for _, a := range s.AgentStatuses {
		if a.Role == role {
			return a, true
		}
	}
	return AgentStatus{}, false
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	out.AgentStatuses = cloneAgents(s.AgentStatuses)
	out.Logs = slices.Clone(s.Logs)
	out.Findings = slices.Clone(s.Findings)
	out.Briefing = s.Briefing.Clone()
	if s.Stage != nil {
		out.Stage = s.Stage.clone()
	}
	if s.LastDelivered != nil {
		d := s.LastDelivered.Clone()
		out.LastDelivered = &d
	}
	return out
}

func cloneAgents(in []AgentStatus) []AgentStatus {
	if in == nil {
		return nil
	}
	out := make([]AgentStatus, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// Clone returns a copy that does not share the progress pointer.
func (a AgentStatus) Clone() AgentStatus {
	if a.Progress != nil {
		p := *a.Progress
		a.Progress = &p
	}
	return a
}

// Clone returns a deep copy of the briefing.
func (b Briefing) Clone() Briefing {
	b.Scope = slices.Clone(b.Scope)
	b.KeyTerms = slices.Clone(b.KeyTerms)
	b.Assumptions = slices.Clone(b.Assumptions)
	b.Risks = slices.Clone(b.Risks)
	b.Roadmap = slices.Clone(b.Roadmap)
	return b
}

// Clone returns a deep copy of the plan.
func (p ExecutionPlan) Clone() ExecutionPlan {
	p.ExpectedOutput = slices.Clone(p.ExpectedOutput)
	return p
}

// Clone returns a deep copy of the deliverable.
func (d Deliverable) Clone() Deliverable {
	d.Conclusions = slices.Clone(d.Conclusions)
	d.PendingItems = slices.Clone(d.PendingItems)
	d.NextSteps = slices.Clone(d.NextSteps)
	return d
}

// Progress returns a pointer to p for use in AgentStatus literals.
func Progress(p int) *int {
	return &p
}
