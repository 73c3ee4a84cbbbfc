package research

import (
	"encoding/json"
	"errors"
	"testing"

	deskerrors "github.com/Iron-Ham/researchdesk/internal/errors"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
)

func TestSessionPhase(t *testing.T) {
	tests := []struct {
		stage Stage
		want  phase.Phase
	}{
		{nil, phase.PhaseInput},
		{BriefingStage{}, phase.PhaseBriefing},
		{RunningStage{}, phase.PhaseRunning},
		{ComputeStage{}, phase.PhaseCompute},
		{MonitoringStage{}, phase.PhaseMonitoring},
		{DeliveryStage{}, phase.PhaseDelivery},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			s := Session{Stage: tt.stage}
			if got := s.Phase(); got != tt.want {
				t.Errorf("Phase() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionAccessors(t *testing.T) {
	plan := ExecutionPlan{ID: "ep-1", TotalItems: 23}
	status := ComputeStatus{Stage: "analyze", Progress: 40, TotalItems: 23}
	deliv := Deliverable{CompletionRate: 75}

	t.Run("compute stage exposes plan only", func(t *testing.T) {
		s := Session{Stage: ComputeStage{Plan: plan}}
		if p, ok := s.ExecutionPlan(); !ok || p.ID != "ep-1" {
			t.Errorf("ExecutionPlan() = %+v, %v", p, ok)
		}
		if _, ok := s.ComputeStatus(); ok {
			t.Error("ComputeStatus() defined in compute stage")
		}
		if _, ok := s.Deliverable(); ok {
			t.Error("Deliverable() defined without delivery")
		}
	})

	t.Run("monitoring stage exposes plan and status", func(t *testing.T) {
		s := Session{Stage: MonitoringStage{Plan: plan, Compute: status}}
		if c, ok := s.ComputeStatus(); !ok || c.Progress != 40 {
			t.Errorf("ComputeStatus() = %+v, %v", c, ok)
		}
	})

	t.Run("skip delivery has no compute status", func(t *testing.T) {
		s := Session{Stage: DeliveryStage{Deliverable: deliv, Plan: &plan}}
		if _, ok := s.ComputeStatus(); ok {
			t.Error("ComputeStatus() defined after skip")
		}
		if d, ok := s.Deliverable(); !ok || d.CompletionRate != 75 {
			t.Errorf("Deliverable() = %+v, %v", d, ok)
		}
	})

	t.Run("running stage falls back to last delivered", func(t *testing.T) {
		s := Session{Stage: RunningStage{}, LastDelivered: &deliv}
		if d, ok := s.Deliverable(); !ok || d.CompletionRate != 75 {
			t.Errorf("Deliverable() = %+v, %v", d, ok)
		}
	})
}

func TestSessionClone_IsDeep(t *testing.T) {
	plan := ExecutionPlan{ID: "ep", ExpectedOutput: []string{"a"}}
	status := ComputeStatus{Progress: 10}
	orig := Session{
		ID:            "s",
		AgentStatuses: []AgentStatus{{Role: RolePlanner, Progress: Progress(30)}},
		Logs:          []LogEntry{{Message: "one"}},
		Findings:      []Finding{{ID: "f1"}},
		Briefing:      Briefing{Scope: []string{"x"}},
		Stage:         DeliveryStage{Deliverable: Deliverable{PendingItems: []string{"p"}}, Plan: &plan, Compute: &status},
		LastDelivered: &Deliverable{PendingItems: []string{"old"}},
	}

	c := orig.Clone()
	*c.AgentStatuses[0].Progress = 99
	c.Logs[0].Message = "changed"
	c.Findings[0].ID = "changed"
	c.Briefing.Scope[0] = "changed"
	st := c.Stage.(DeliveryStage)
	st.Deliverable.PendingItems[0] = "changed"
	st.Plan.ExpectedOutput[0] = "changed"
	st.Compute.Progress = 99
	c.LastDelivered.PendingItems[0] = "changed"

	if *orig.AgentStatuses[0].Progress != 30 {
		t.Error("agent progress shared with clone")
	}
	if orig.Logs[0].Message != "one" || orig.Findings[0].ID != "f1" {
		t.Error("logs or findings shared with clone")
	}
	if orig.Briefing.Scope[0] != "x" {
		t.Error("briefing shared with clone")
	}
	ost := orig.Stage.(DeliveryStage)
	if ost.Deliverable.PendingItems[0] != "p" || plan.ExpectedOutput[0] != "a" || status.Progress != 10 {
		t.Error("delivery stage payload shared with clone")
	}
	if orig.LastDelivered.PendingItems[0] != "old" {
		t.Error("last delivered shared with clone")
	}
}

func TestInitialRoster(t *testing.T) {
	r := InitialRoster("Decomposing")
	if len(r) != len(Roster()) {
		t.Fatalf("len = %d, want %d", len(r), len(Roster()))
	}
	if r[0].Role != RolePlanner || r[0].State != AgentWorking || r[0].Message != "Decomposing" {
		t.Errorf("first slot = %+v", r[0])
	}
	if r[1].State != AgentWaiting {
		t.Errorf("second slot state = %q, want waiting", r[1].State)
	}
	for _, a := range r[2:] {
		if a.State != AgentIdle {
			t.Errorf("%s state = %q, want idle", a.Role, a.State)
		}
	}
}

func TestMergeAgents(t *testing.T) {
	cur := InitialRoster("x")
	out := MergeAgents(cur, []AgentStatus{
		{Role: RoleLibrarian, State: AgentWorking, Message: "searching", Progress: Progress(30)},
		{Role: AgentRole("Ghost"), State: AgentWorking},
	})

	if len(out) != len(cur) {
		t.Fatalf("len = %d, want %d", len(out), len(cur))
	}
	if out[1].State != AgentWorking || *out[1].Progress != 30 {
		t.Errorf("librarian = %+v", out[1])
	}
	if cur[1].State != AgentWaiting {
		t.Error("MergeAgents mutated its input")
	}
}

func TestConstraintsValidate(t *testing.T) {
	tests := []struct {
		name  string
		c     Constraints
		field string
	}{
		{"defaults", DefaultConstraints(), ""},
		{"bad budget", Constraints{Budget: "huge", Speed: SpeedFast, Rigor: 3}, "constraints.budget"},
		{"bad speed", Constraints{Budget: BudgetLow, Speed: "warp", Rigor: 3}, "constraints.speed"},
		{"rigor low", Constraints{Budget: BudgetLow, Speed: SpeedDeep, Rigor: 0}, "constraints.rigor"},
		{"rigor high", Constraints{Budget: BudgetHigh, Speed: SpeedDeep, Rigor: 11}, "constraints.rigor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *deskerrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if !errors.Is(err, deskerrors.ErrInvalidInput) {
				t.Error("validation error should match ErrInvalidInput")
			}
		})
	}
}

func TestParseBudgetAndSpeed(t *testing.T) {
	if b, err := ParseBudget(" HIGH "); err != nil || b != BudgetHigh {
		t.Errorf("ParseBudget = %q, %v", b, err)
	}
	if _, err := ParseBudget("none"); err == nil {
		t.Error("ParseBudget(none) should fail")
	}
	if s, err := ParseSpeed("Deep"); err != nil || s != SpeedDeep {
		t.Errorf("ParseSpeed = %q, %v", s, err)
	}
	if _, err := ParseSpeed(""); err == nil {
		t.Error("ParseSpeed(\"\") should fail")
	}
}

func TestSessionMarshalJSON(t *testing.T) {
	status := ComputeStatus{Progress: 100, TotalItems: 23}
	s := Session{
		ID:    "session-1",
		Topic: "LLM agents",
		Round: 1,
		Stage: DeliveryStage{
			Deliverable: Deliverable{CompletionRate: 75},
			Compute:     &status,
		},
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got["phase"] != "delivery" {
		t.Errorf("phase = %v, want delivery", got["phase"])
	}
	if _, ok := got["deliverable"]; !ok {
		t.Error("deliverable missing")
	}
	if _, ok := got["compute_status"]; !ok {
		t.Error("compute_status missing")
	}
	if _, ok := got["execution_plan"]; ok {
		t.Error("execution_plan present without a plan")
	}
	if logs, ok := got["logs"].([]any); !ok || len(logs) != 0 {
		t.Errorf("logs = %v, want empty array", got["logs"])
	}
}

func TestDeliverableNextStep(t *testing.T) {
	d := Deliverable{NextSteps: []NextStepOption{{ID: "1"}, {ID: "2", Title: "two"}}}
	if opt, ok := d.NextStep("2"); !ok || opt.Title != "two" {
		t.Errorf("NextStep(2) = %+v, %v", opt, ok)
	}
	if _, ok := d.NextStep("9"); ok {
		t.Error("NextStep(9) should not be found")
	}
}
