package orchestrator

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/researchdesk/internal/content"
	"github.com/Iron-Ham/researchdesk/internal/errors"
	"github.com/Iron-Ham/researchdesk/internal/event"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
	"github.com/Iron-Ham/researchdesk/internal/research"
	"github.com/Iron-Ham/researchdesk/internal/simulator"
)

var errProviderDown = errors.New("provider down")

// flakyProvider wraps the static provider and fails the payloads switched on.
type flakyProvider struct {
	mu       sync.Mutex
	inner    content.Provider
	briefing bool
	plan     bool
	deliver  bool
}

func newFlakyProvider() *flakyProvider {
	return &flakyProvider{inner: content.NewStaticProvider(nil)}
}

func (p *flakyProvider) set(briefing, plan, deliver bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.briefing, p.plan, p.deliver = briefing, plan, deliver
}

func (p *flakyProvider) Briefing(ctx context.Context, topic string, c research.Constraints) (research.Briefing, error) {
	p.mu.Lock()
	fail := p.briefing
	p.mu.Unlock()
	if fail {
		return research.Briefing{}, errProviderDown
	}
	return p.inner.Briefing(ctx, topic, c)
}

func (p *flakyProvider) ExecutionPlan(ctx context.Context, s research.Session) (research.ExecutionPlan, error) {
	p.mu.Lock()
	fail := p.plan
	p.mu.Unlock()
	if fail {
		return research.ExecutionPlan{}, errProviderDown
	}
	return p.inner.ExecutionPlan(ctx, s)
}

func (p *flakyProvider) Deliverable(ctx context.Context, s research.Session) (research.Deliverable, error) {
	p.mu.Lock()
	fail := p.deliver
	p.mu.Unlock()
	if fail {
		return research.Deliverable{}, errProviderDown
	}
	return p.inner.Deliverable(ctx, s)
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("session-%d", n)
	}
}

func newManual(t *testing.T, provider content.Provider, opts ...Option) *Orchestrator {
	t.Helper()
	base := []Option{
		WithManualProgress(),
		WithClock(fixedClock()),
		WithIDGenerator(sequentialIDs()),
	}
	return New(provider, append(base, opts...)...)
}

func mustSession(t *testing.T, o *Orchestrator) research.Session {
	t.Helper()
	s, ok := o.Session()
	if !ok {
		t.Fatal("expected a session")
	}
	return s
}

// driveTo advances a fresh manual orchestrator into target.
func driveTo(t *testing.T, o *Orchestrator, target phase.Phase) {
	t.Helper()
	ctx := context.Background()
	if target == phase.PhaseInput {
		return
	}
	if _, err := o.CreateSession(ctx, "LLM agents for code generation", research.DefaultConstraints()); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if target == phase.PhaseBriefing {
		return
	}
	if _, err := o.ConfirmBriefing(ctx, research.BriefingContinue); err != nil {
		t.Fatalf("ConfirmBriefing() error = %v", err)
	}
	if target == phase.PhaseRunning {
		return
	}
	for o.Phase() == phase.PhaseRunning {
		if _, err := o.AdvanceSimulatedProgress(ctx); err != nil {
			t.Fatalf("AdvanceSimulatedProgress() error = %v", err)
		}
	}
	if target == phase.PhaseCompute {
		return
	}
	if _, err := o.DecideCompute(ctx, research.ComputeExecute); err != nil {
		t.Fatalf("DecideCompute() error = %v", err)
	}
	if target == phase.PhaseMonitoring {
		return
	}
	for o.Phase() == phase.PhaseMonitoring {
		if _, err := o.AdvanceComputeProgress(ctx); err != nil {
			t.Fatalf("AdvanceComputeProgress() error = %v", err)
		}
	}
	if o.Phase() != target {
		t.Fatalf("Phase() = %s, want %s", o.Phase(), target)
	}
}

func TestNew_Defaults(t *testing.T) {
	o := New(nil)
	if o.Phase() != phase.PhaseInput {
		t.Errorf("Phase() = %s, want input", o.Phase())
	}
	if _, ok := o.Session(); ok {
		t.Error("new orchestrator should have no session")
	}
	if len(o.History()) != 0 {
		t.Error("new orchestrator should have no history")
	}
	if o.Timing() != simulator.DefaultTiming() {
		t.Errorf("Timing() = %+v", o.Timing())
	}
	if o.DefaultConstraints() != research.DefaultConstraints() {
		t.Errorf("DefaultConstraints() = %+v", o.DefaultConstraints())
	}
}

func TestCreateSession(t *testing.T) {
	o := newManual(t, nil)
	s, err := o.CreateSession(context.Background(), "  LLM agents  ", research.DefaultConstraints())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if s.ID != "session-1" {
		t.Errorf("ID = %q", s.ID)
	}
	if s.Topic != "LLM agents" {
		t.Errorf("Topic = %q, want trimmed", s.Topic)
	}
	if s.Phase() != phase.PhaseBriefing || s.Round != 0 {
		t.Errorf("phase=%s round=%d", s.Phase(), s.Round)
	}
	if len(s.Logs) != 0 || len(s.Findings) != 0 || len(s.AgentStatuses) != 0 {
		t.Error("new session should have empty sequences")
	}
	if s.Briefing.OriginalQuestion != "LLM agents" {
		t.Errorf("Briefing.OriginalQuestion = %q", s.Briefing.OriginalQuestion)
	}
	if _, ok := s.ExecutionPlan(); ok {
		t.Error("briefing should have no plan")
	}
	h := o.History()
	if len(h) != 1 || h[0].From != phase.PhaseInput || h[0].To != phase.PhaseBriefing {
		t.Errorf("History() = %+v", h)
	}
}

func TestCreateSession_Rejected(t *testing.T) {
	bad := research.DefaultConstraints()
	bad.Rigor = 11

	tests := []struct {
		name        string
		topic       string
		constraints research.Constraints
		providerErr bool
		want        error
	}{
		{"blank topic", "   ", research.DefaultConstraints(), false, errors.ErrEmptyTopic},
		{"invalid rigor", "topic", bad, false, errors.ErrInvalidInput},
		{"unknown budget", "topic", research.Constraints{Budget: "huge", Speed: research.SpeedFast, Rigor: 3}, false, errors.ErrInvalidInput},
		{"provider failure", "topic", research.DefaultConstraints(), true, errors.ErrContentUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name+" without session", func(t *testing.T) {
			p := newFlakyProvider()
			p.set(tt.providerErr, false, false)
			o := newManual(t, p)

			s, err := o.CreateSession(context.Background(), tt.topic, tt.constraints)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !reflect.DeepEqual(s, research.Session{}) {
				t.Error("rejected create without a session should return the zero session")
			}
			if _, ok := o.Session(); ok {
				t.Error("no session should exist")
			}
		})

		t.Run(tt.name+" keeps prior session", func(t *testing.T) {
			p := newFlakyProvider()
			o := newManual(t, p)
			driveTo(t, o, phase.PhaseRunning)
			before := mustSession(t, o)
			historyBefore := o.History()

			p.set(tt.providerErr, false, false)
			s, err := o.CreateSession(context.Background(), tt.topic, tt.constraints)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !reflect.DeepEqual(s, before) {
				t.Error("returned snapshot should be the unchanged session")
			}
			if !reflect.DeepEqual(mustSession(t, o), before) {
				t.Error("session changed after rejected create")
			}
			if !reflect.DeepEqual(o.History(), historyBefore) {
				t.Error("history changed after rejected create")
			}
		})
	}
}

func TestCreateSession_Replaces(t *testing.T) {
	o := newManual(t, nil)
	driveTo(t, o, phase.PhaseDelivery)

	s, err := o.CreateSession(context.Background(), "second topic", research.DefaultConstraints())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if s.ID != "session-2" || s.Phase() != phase.PhaseBriefing || s.Round != 0 {
		t.Errorf("replacement = id %q phase %s round %d", s.ID, s.Phase(), s.Round)
	}
	if s.LastDelivered != nil || len(s.Logs) != 0 {
		t.Error("replacement should start clean")
	}
	if len(o.History()) != 1 {
		t.Errorf("history should restart, got %d entries", len(o.History()))
	}
}

func TestInvalidCommandsLeaveSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	commands := map[string]func(o *Orchestrator) (research.Session, error){
		CmdConfirmBriefing: func(o *Orchestrator) (research.Session, error) {
			return o.ConfirmBriefing(ctx, research.BriefingContinue)
		},
		CmdAdvanceProgress: func(o *Orchestrator) (research.Session, error) { return o.AdvanceSimulatedProgress(ctx) },
		CmdDecideCompute: func(o *Orchestrator) (research.Session, error) {
			return o.DecideCompute(ctx, research.ComputeExecute)
		},
		CmdAdvanceCompute: func(o *Orchestrator) (research.Session, error) { return o.AdvanceComputeProgress(ctx) },
		CmdSelectNextStep: func(o *Orchestrator) (research.Session, error) { return o.SelectNextStep(ctx, "1") },
		CmdStopSession:    func(o *Orchestrator) (research.Session, error) { return o.StopSession(ctx) },
	}
	allowed := map[string][]phase.Phase{
		CmdConfirmBriefing: {phase.PhaseBriefing},
		CmdAdvanceProgress: {phase.PhaseRunning},
		CmdDecideCompute:   {phase.PhaseCompute},
		CmdAdvanceCompute:  {phase.PhaseMonitoring},
		CmdSelectNextStep:  {phase.PhaseDelivery},
		CmdStopSession:     {phase.PhaseRunning, phase.PhaseCompute, phase.PhaseMonitoring},
	}

	for _, p := range phase.AllPhases() {
		for name, cmd := range commands {
			if slices.Contains(allowed[name], p) {
				continue
			}
			t.Run(fmt.Sprintf("%s in %s", name, p), func(t *testing.T) {
				o := newManual(t, nil)
				driveTo(t, o, p)
				before, hadSession := o.Session()
				historyBefore := o.History()

				got, err := cmd(o)
				if !errors.Is(err, errors.ErrInvalidTransition) {
					t.Fatalf("error = %v, want ErrInvalidTransition", err)
				}
				var cmdErr *errors.CommandError
				if !errors.As(err, &cmdErr) {
					t.Fatalf("error %T is not a *CommandError", err)
				}
				if cmdErr.Command != name || cmdErr.Phase != p.String() {
					t.Errorf("CommandError = %+v", cmdErr)
				}
				if hadSession != (p != phase.PhaseInput) {
					t.Fatalf("session presence mismatch in %s", p)
				}
				if !hadSession && !errors.Is(err, errors.ErrNoSession) {
					t.Errorf("error without session should be ErrNoSession, got %v", err)
				}
				if !reflect.DeepEqual(got, before) {
					t.Error("returned snapshot differs from the session before the call")
				}
				after, _ := o.Session()
				if !reflect.DeepEqual(after, before) {
					t.Error("session mutated by rejected command")
				}
				if !reflect.DeepEqual(o.History(), historyBefore) {
					t.Error("history mutated by rejected command")
				}
			})
		}
	}
}

func TestConfirmBriefing_Continue(t *testing.T) {
	o := newManual(t, nil)
	driveTo(t, o, phase.PhaseBriefing)

	s, err := o.ConfirmBriefing(context.Background(), research.BriefingContinue)
	if err != nil {
		t.Fatalf("ConfirmBriefing() error = %v", err)
	}
	if s.Phase() != phase.PhaseRunning || s.Round != 1 {
		t.Fatalf("phase=%s round=%d", s.Phase(), s.Round)
	}
	if len(s.AgentStatuses) != len(research.Roster()) {
		t.Fatalf("roster size = %d", len(s.AgentStatuses))
	}
	wantStates := []research.AgentState{
		research.AgentWorking, research.AgentWaiting,
		research.AgentIdle, research.AgentIdle, research.AgentIdle,
	}
	for i, a := range s.AgentStatuses {
		if a.State != wantStates[i] {
			t.Errorf("agent %s state = %s, want %s", a.Role, a.State, wantStates[i])
		}
	}
	if len(s.Logs) != 1 || s.Logs[0].Message != "Starting task decomposition..." {
		t.Errorf("Logs = %+v", s.Logs)
	}
}

func TestConfirmBriefing_AdjustIsNoOp(t *testing.T) {
	bus := event.NewBus()
	var got []string
	bus.SubscribeAll(func(e event.Event) { got = append(got, e.EventType()) })

	o := newManual(t, nil, WithBus(bus))
	driveTo(t, o, phase.PhaseBriefing)
	before := mustSession(t, o)
	got = nil

	s, err := o.ConfirmBriefing(context.Background(), research.BriefingAdjust)
	if err != nil {
		t.Fatalf("ConfirmBriefing(adjust) error = %v", err)
	}
	if !reflect.DeepEqual(s, before) || !reflect.DeepEqual(mustSession(t, o), before) {
		t.Error("adjust must not mutate the session")
	}
	if !slices.Equal(got, []string{event.TypeAdjustRequested}) {
		t.Errorf("events = %v", got)
	}
}

func TestConfirmBriefing_UnknownDecision(t *testing.T) {
	o := newManual(t, nil)
	driveTo(t, o, phase.PhaseBriefing)
	before := mustSession(t, o)

	_, err := o.ConfirmBriefing(context.Background(), "maybe")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if !reflect.DeepEqual(mustSession(t, o), before) {
		t.Error("session changed")
	}
}

func TestRunningSchedule(t *testing.T) {
	o := newManual(t, nil)
	driveTo(t, o, phase.PhaseRunning)
	ctx := context.Background()

	prev := mustSession(t, o)
	steps := 0
	for o.Phase() == phase.PhaseRunning {
		s, err := o.AdvanceSimulatedProgress(ctx)
		if err != nil {
			t.Fatalf("AdvanceSimulatedProgress() error = %v", err)
		}
		steps++
		if len(s.Logs) < len(prev.Logs) || !slices.Equal(s.Logs[:len(prev.Logs)], prev.Logs) {
			t.Fatalf("step %d rewrote earlier log entries", steps)
		}
		if len(s.Findings) < len(prev.Findings) || !slices.Equal(s.Findings[:len(prev.Findings)], prev.Findings) {
			t.Fatalf("step %d rewrote earlier findings", steps)
		}
		if len(s.AgentStatuses) != len(research.Roster()) {
			t.Fatalf("step %d changed roster size", steps)
		}
		prev = s
	}

	if steps != len(simulator.DefaultScript().Steps) {
		t.Errorf("steps = %d", steps)
	}
	if prev.Phase() != phase.PhaseCompute {
		t.Fatalf("Phase() = %s, want compute", prev.Phase())
	}
	plan, ok := prev.ExecutionPlan()
	if !ok || plan.ID != "ep-001" || plan.TotalItems != 23 {
		t.Errorf("ExecutionPlan() = %+v, %v", plan, ok)
	}
	ids := make([]string, 0, len(prev.Findings))
	for _, f := range prev.Findings {
		ids = append(ids, f.ID)
	}
	if !slices.Equal(ids, []string{"r1-f1", "r1-f2"}) {
		t.Errorf("finding ids = %v", ids)
	}
	if _, ok := prev.ComputeStatus(); ok {
		t.Error("compute status should be undefined before execute")
	}
}

func TestExecutePath(t *testing.T) {
	o := newManual(t, nil)
	driveTo(t, o, phase.PhaseCompute)
	ctx := context.Background()

	s, err := o.DecideCompute(ctx, research.ComputeExecute)
	if err != nil {
		t.Fatalf("DecideCompute() error = %v", err)
	}
	status, ok := s.ComputeStatus()
	if !ok {
		t.Fatal("monitoring should have a compute status")
	}
	want := research.ComputeStatus{
		Stage:       "Analyzing paper citation relations",
		CurrentItem: "item 1/23",
		Progress:    0,
		TotalItems:  23,
	}
	if status != want {
		t.Errorf("ComputeStatus() = %+v, want %+v", status, want)
	}
	if last := s.Logs[len(s.Logs)-1]; last.Role != research.RoleCompute {
		t.Errorf("last log role = %s, want Compute", last.Role)
	}

	ticks := 0
	lastProgress := 0
	for o.Phase() == phase.PhaseMonitoring {
		s, err = o.AdvanceComputeProgress(ctx)
		if err != nil {
			t.Fatalf("AdvanceComputeProgress() error = %v", err)
		}
		ticks++
		c, _ := s.ComputeStatus()
		if c.Progress < lastProgress || c.Progress > 100 {
			t.Fatalf("progress went from %d to %d", lastProgress, c.Progress)
		}
		lastProgress = c.Progress
	}
	if ticks != 10 {
		t.Errorf("ticks = %d, want 10", ticks)
	}
	if s.Phase() != phase.PhaseDelivery {
		t.Fatalf("Phase() = %s", s.Phase())
	}
	c, ok := s.ComputeStatus()
	if !ok || c.Progress != 100 {
		t.Errorf("final compute status = %+v, %v", c, ok)
	}
	d, ok := s.Deliverable()
	if !ok || len(d.NextSteps) != 3 || d.CompletionRate != 75 {
		t.Errorf("Deliverable() = %+v, %v", d, ok)
	}
	if !o.History().Valid() {
		t.Error("history is not a valid path")
	}
}

func TestSkipAndDowngrade(t *testing.T) {
	for _, decision := range []research.ComputeDecision{research.ComputeSkip, research.ComputeDowngrade} {
		t.Run(string(decision), func(t *testing.T) {
			o := newManual(t, nil)
			driveTo(t, o, phase.PhaseCompute)
			before := mustSession(t, o)

			s, err := o.DecideCompute(context.Background(), decision)
			if err != nil {
				t.Fatalf("DecideCompute() error = %v", err)
			}
			if s.Phase() != phase.PhaseDelivery {
				t.Fatalf("Phase() = %s", s.Phase())
			}
			if _, ok := s.ComputeStatus(); ok {
				t.Error("compute status must stay undefined")
			}
			if _, ok := s.ExecutionPlan(); !ok {
				t.Error("plan should be kept in delivery")
			}
			added := s.Logs[len(before.Logs):]
			computeEntries := 0
			for _, l := range added {
				if l.Role == research.RoleCompute {
					computeEntries++
				}
			}
			if computeEntries != 1 {
				t.Errorf("compute log entries = %d, want 1", computeEntries)
			}
		})
	}
}

func TestDecideCompute_UnknownDecision(t *testing.T) {
	o := newManual(t, nil)
	driveTo(t, o, phase.PhaseCompute)
	before := mustSession(t, o)

	if _, err := o.DecideCompute(context.Background(), "later"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if !reflect.DeepEqual(mustSession(t, o), before) {
		t.Error("session changed")
	}
}

func TestSelectNextStep(t *testing.T) {
	o := newManual(t, nil)
	driveTo(t, o, phase.PhaseDelivery)
	ctx := context.Background()
	before := mustSession(t, o)

	if _, err := o.SelectNextStep(ctx, "99"); !errors.Is(err, errors.ErrUnknownOption) {
		t.Fatalf("unknown option error = %v", err)
	}
	if !reflect.DeepEqual(mustSession(t, o), before) {
		t.Fatal("unknown option mutated the session")
	}

	s, err := o.SelectNextStep(ctx, "2")
	if err != nil {
		t.Fatalf("SelectNextStep() error = %v", err)
	}
	if s.Phase() != phase.PhaseRunning || s.Round != 2 {
		t.Fatalf("phase=%s round=%d", s.Phase(), s.Round)
	}
	last := s.Logs[len(s.Logs)-1]
	if last.Message != "Starting round 2: Broaden industry case analysis" {
		t.Errorf("round log = %q", last.Message)
	}
	if planner, _ := s.Agent(research.RolePlanner); planner.Message != "Planning the next round..." {
		t.Errorf("planner message = %q", planner.Message)
	}
	if s.LastDelivered == nil {
		t.Fatal("LastDelivered should hold the previous deliverable")
	}
	if d, ok := s.Deliverable(); !ok || d.CompletionRate != 75 {
		t.Errorf("Deliverable() should fall back to the last one, got %+v, %v", d, ok)
	}
	if _, ok := s.ExecutionPlan(); ok {
		t.Error("a new round should not carry the previous plan")
	}
	if !slices.Equal(s.Logs[:len(before.Logs)], before.Logs) {
		t.Error("earlier logs rewritten")
	}

	for o.Phase() == phase.PhaseRunning {
		if _, err := o.AdvanceSimulatedProgress(ctx); err != nil {
			t.Fatalf("AdvanceSimulatedProgress() error = %v", err)
		}
	}
	s = mustSession(t, o)
	seen := make(map[string]bool)
	for _, f := range s.Findings {
		if seen[f.ID] {
			t.Errorf("duplicate finding id %s", f.ID)
		}
		seen[f.ID] = true
	}
	if !seen["r2-f1"] {
		t.Error("round 2 findings should be numbered r2-f*")
	}
}

func TestStopSession(t *testing.T) {
	tests := []struct {
		from        phase.Phase
		wantPlan    bool
		wantCompute bool
	}{
		{phase.PhaseRunning, false, false},
		{phase.PhaseCompute, true, false},
		{phase.PhaseMonitoring, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			o := newManual(t, nil)
			driveTo(t, o, tt.from)
			before := mustSession(t, o)

			s, err := o.StopSession(context.Background())
			if err != nil {
				t.Fatalf("StopSession() error = %v", err)
			}
			if s.Phase() != phase.PhaseDelivery {
				t.Fatalf("Phase() = %s", s.Phase())
			}
			if _, ok := s.ExecutionPlan(); ok != tt.wantPlan {
				t.Errorf("plan present = %v, want %v", ok, tt.wantPlan)
			}
			if _, ok := s.ComputeStatus(); ok != tt.wantCompute {
				t.Errorf("compute present = %v, want %v", ok, tt.wantCompute)
			}
			added := s.Logs[len(before.Logs):]
			if len(added) == 0 || added[0].Level != research.LogWarning {
				t.Errorf("stop should append a warning entry, got %+v", added)
			}
			if s.Round != before.Round {
				t.Errorf("Round = %d, want %d", s.Round, before.Round)
			}
		})
	}
}

func TestContentFailureDuringSchedule(t *testing.T) {
	p := newFlakyProvider()
	o := newManual(t, p)
	driveTo(t, o, phase.PhaseRunning)
	ctx := context.Background()

	steps := len(simulator.DefaultScript().Steps)
	for range steps - 1 {
		if _, err := o.AdvanceSimulatedProgress(ctx); err != nil {
			t.Fatalf("AdvanceSimulatedProgress() error = %v", err)
		}
	}

	p.set(false, true, false)
	before := mustSession(t, o)
	if _, err := o.AdvanceSimulatedProgress(ctx); !errors.Is(err, errors.ErrContentUnavailable) {
		t.Fatalf("error = %v, want ErrContentUnavailable", err)
	}
	if !reflect.DeepEqual(mustSession(t, o), before) {
		t.Fatal("failed step must not mutate the session")
	}

	p.set(false, false, false)
	s, err := o.AdvanceSimulatedProgress(ctx)
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if s.Phase() != phase.PhaseCompute {
		t.Errorf("retry should reach compute, got %s", s.Phase())
	}
}

func TestContentFailureOnDelivery(t *testing.T) {
	p := newFlakyProvider()
	o := newManual(t, p)
	driveTo(t, o, phase.PhaseCompute)
	p.set(false, false, true)
	before := mustSession(t, o)

	_, err := o.DecideCompute(context.Background(), research.ComputeSkip)
	if !errors.Is(err, errors.ErrContentUnavailable) {
		t.Fatalf("error = %v", err)
	}
	if errors.GetSeverity(err) != errors.SeverityError || !errors.IsRetryable(err) {
		t.Errorf("content failure: severity = %v, retryable = %v", errors.GetSeverity(err), errors.IsRetryable(err))
	}
	if _, err := o.StopSession(context.Background()); !errors.Is(err, errors.ErrContentUnavailable) {
		t.Fatalf("error = %v", err)
	}
	if !reflect.DeepEqual(mustSession(t, o), before) {
		t.Error("session changed")
	}
}

func TestReset(t *testing.T) {
	bus := event.NewBus()
	var got []string
	bus.SubscribeAll(func(e event.Event) { got = append(got, e.EventType()) })

	o := newManual(t, nil, WithBus(bus))
	driveTo(t, o, phase.PhaseRunning)
	got = nil

	o.Reset()
	if o.Phase() != phase.PhaseInput {
		t.Errorf("Phase() = %s", o.Phase())
	}
	if _, ok := o.Session(); ok {
		t.Error("session should be gone")
	}
	if len(o.History()) != 0 {
		t.Error("history should be cleared")
	}
	if !slices.Equal(got, []string{event.TypeSessionReset}) {
		t.Errorf("events = %v", got)
	}

	got = nil
	o.Reset()
	if len(got) != 0 {
		t.Errorf("reset without a session should publish nothing, got %v", got)
	}
}

func TestEventsFollowMutationOrder(t *testing.T) {
	bus := event.NewBus()
	var got []string
	var phases []phase.Phase
	bus.SubscribeAll(func(e event.Event) {
		got = append(got, e.EventType())
		if pc, ok := e.(event.PhaseChangedEvent); ok {
			phases = append(phases, pc.Transition.To)
		}
	})

	o := newManual(t, nil, WithBus(bus))
	driveTo(t, o, phase.PhaseCompute)
	_, _ = o.ConfirmBriefing(context.Background(), research.BriefingContinue)

	want := []string{
		event.TypeSessionCreated, event.TypePhaseChanged,
		event.TypePhaseChanged,
		event.TypeSessionUpdated, event.TypeSessionUpdated, event.TypeSessionUpdated,
		event.TypePhaseChanged,
		event.TypeCommandRejected,
	}
	if !slices.Equal(got, want) {
		t.Errorf("events = %v\nwant     %v", got, want)
	}
	wantPhases := []phase.Phase{phase.PhaseBriefing, phase.PhaseRunning, phase.PhaseCompute}
	if !slices.Equal(phases, wantPhases) {
		t.Errorf("phases = %v", phases)
	}
}

func TestSnapshotsAreIndependent(t *testing.T) {
	o := newManual(t, nil)
	driveTo(t, o, phase.PhaseCompute)

	s := mustSession(t, o)
	s.Logs[0].Message = "tampered"
	s.AgentStatuses[0].State = research.AgentError
	s.Findings = nil

	again := mustSession(t, o)
	if again.Logs[0].Message == "tampered" || again.AgentStatuses[0].State == research.AgentError || len(again.Findings) == 0 {
		t.Error("mutating a snapshot leaked into the orchestrator")
	}
}

func fastTiming() simulator.Timing {
	return simulator.Timing{
		StartDelay:      time.Millisecond,
		StepInterval:    time.Millisecond,
		MonitorInterval: time.Millisecond,
		MonitorStep:     25,
	}
}

func waitForPhase(t *testing.T, o *Orchestrator, want phase.Phase) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if o.Phase() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s, still in %s", want, o.Phase())
}

func TestTimedProgress(t *testing.T) {
	o := New(nil, WithTiming(fastTiming()))
	defer o.Reset()
	ctx := context.Background()

	if _, err := o.CreateSession(ctx, "timed", research.DefaultConstraints()); err != nil {
		t.Fatal(err)
	}
	if _, err := o.ConfirmBriefing(ctx, research.BriefingContinue); err != nil {
		t.Fatal(err)
	}
	waitForPhase(t, o, phase.PhaseCompute)

	s := mustSession(t, o)
	if len(s.Findings) != 2 {
		t.Errorf("findings = %d, want 2", len(s.Findings))
	}

	if _, err := o.DecideCompute(ctx, research.ComputeExecute); err != nil {
		t.Fatal(err)
	}
	waitForPhase(t, o, phase.PhaseDelivery)

	c, ok := mustSession(t, o).ComputeStatus()
	if !ok || c.Progress != 100 {
		t.Errorf("ComputeStatus() = %+v, %v", c, ok)
	}
	if !o.History().Valid() {
		t.Error("history is not a valid path")
	}
}

func TestStaleScheduleIsDiscarded(t *testing.T) {
	timing := fastTiming()
	timing.StartDelay = 20 * time.Millisecond
	o := New(nil, WithTiming(timing))
	defer o.Reset()
	ctx := context.Background()

	if _, err := o.CreateSession(ctx, "first", research.DefaultConstraints()); err != nil {
		t.Fatal(err)
	}
	if _, err := o.ConfirmBriefing(ctx, research.BriefingContinue); err != nil {
		t.Fatal(err)
	}
	if _, err := o.CreateSession(ctx, "second", research.DefaultConstraints()); err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)

	s := mustSession(t, o)
	if s.Topic != "second" || s.Phase() != phase.PhaseBriefing {
		t.Fatalf("session = %q in %s", s.Topic, s.Phase())
	}
	if len(s.Logs) != 0 || len(s.Findings) != 0 || len(s.AgentStatuses) != 0 {
		t.Error("stale ticks from the replaced session leaked into the new one")
	}
}

func TestStopCancelsSchedule(t *testing.T) {
	timing := fastTiming()
	timing.StartDelay = 20 * time.Millisecond
	o := New(nil, WithTiming(timing))
	ctx := context.Background()

	if _, err := o.CreateSession(ctx, "stopping", research.DefaultConstraints()); err != nil {
		t.Fatal(err)
	}
	if _, err := o.ConfirmBriefing(ctx, research.BriefingContinue); err != nil {
		t.Fatal(err)
	}
	stopped, err := o.StopSession(ctx)
	if err != nil {
		t.Fatalf("StopSession() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if !reflect.DeepEqual(mustSession(t, o), stopped) {
		t.Error("session changed after stop")
	}
}

func TestBusHandlerMayIssueCommandsAsynchronously(t *testing.T) {
	bus := event.NewBus()
	o := newManual(t, nil, WithBus(bus))
	done := make(chan error, 1)

	bus.Subscribe(event.TypeSessionCreated, func(e event.Event) {
		go func() {
			_, err := o.ConfirmBriefing(context.Background(), research.BriefingContinue)
			done <- err
		}()
	})

	if _, err := o.CreateSession(context.Background(), "async", research.DefaultConstraints()); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ConfirmBriefing() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command from handler goroutine never completed")
	}
	if o.Phase() != phase.PhaseRunning {
		t.Errorf("Phase() = %s", o.Phase())
	}
}

func TestSetTiming(t *testing.T) {
	o := newManual(t, nil)
	o.SetTiming(fastTiming())
	if o.Timing() != fastTiming() {
		t.Errorf("Timing() = %+v", o.Timing())
	}
}

func TestRejectedCommandIsLoggedAndPublished(t *testing.T) {
	bus := event.NewBus()
	var rejected event.CommandRejectedEvent
	bus.Subscribe(event.TypeCommandRejected, func(e event.Event) {
		rejected = e.(event.CommandRejectedEvent)
	})

	o := newManual(t, nil, WithBus(bus))
	_, err := o.StopSession(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if rejected.Command != CmdStopSession || rejected.Phase != phase.PhaseInput {
		t.Errorf("rejected = %+v", rejected)
	}
	if !strings.Contains(err.Error(), "stop_session") {
		t.Errorf("error text = %q", err.Error())
	}
	if errors.GetSeverity(err) != errors.SeverityWarning || errors.IsRetryable(err) {
		t.Errorf("rejection: severity = %v, retryable = %v", errors.GetSeverity(err), errors.IsRetryable(err))
	}
}

func TestMonitoringKeepsStepAcrossTimingChange(t *testing.T) {
	o := newManual(t, nil)
	driveTo(t, o, phase.PhaseMonitoring)
	ctx := context.Background()

	faster := o.Timing()
	faster.MonitorStep = 50
	o.SetTiming(faster)

	s, err := o.AdvanceComputeProgress(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c, _ := s.ComputeStatus(); c.Progress != simulator.DefaultTiming().MonitorStep {
		t.Errorf("progress = %d, want the step the run started with (%d)", c.Progress, simulator.DefaultTiming().MonitorStep)
	}

	o.Reset()
	driveTo(t, o, phase.PhaseMonitoring)
	s, err = o.AdvanceComputeProgress(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c, _ := s.ComputeStatus(); c.Progress != 50 {
		t.Errorf("progress = %d, want the new step 50 for a new run", c.Progress)
	}
}
