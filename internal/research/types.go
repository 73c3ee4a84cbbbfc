// Package research defines the session model for a multi-agent research
// workflow: the session itself, the agents that work on it, and the payloads
// produced at each phase.
package research

import "time"

// Budget is the spending tier chosen for a session.
type Budget string

const (
	BudgetLow    Budget = "low"
	BudgetMedium Budget = "medium"
	BudgetHigh   Budget = "high"
)

// Speed is the depth/latency trade-off chosen for a session.
type Speed string

const (
	SpeedFast     Speed = "fast"
	SpeedStandard Speed = "standard"
	SpeedDeep     Speed = "deep"
)

// Rigor bounds.
const (
	MinRigor = 1
	MaxRigor = 10
)

// Constraints are fixed at session creation and never mutated afterwards.
type Constraints struct {
	Budget     Budget `json:"budget" yaml:"budget"`
	Speed      Speed  `json:"speed" yaml:"speed"`
	Rigor      int    `json:"rigor" yaml:"rigor"`
	Exclusions string `json:"exclusions" yaml:"exclusions"`
}

// DefaultConstraints returns medium budget, standard speed, rigor 5.
func DefaultConstraints() Constraints {
	return Constraints{Budget: BudgetMedium, Speed: SpeedStandard, Rigor: 5}
}

// AgentRole identifies one logical worker. The set is closed.
type AgentRole string

const (
	RolePlanner   AgentRole = "Planner"
	RoleLibrarian AgentRole = "Librarian"
	RoleReasoner  AgentRole = "Reasoner"
	RoleVerifier  AgentRole = "Verifier"
	RoleCompute   AgentRole = "Compute"
)

// Roster returns every agent role in display order.
func Roster() []AgentRole {
	return []AgentRole{RolePlanner, RoleLibrarian, RoleReasoner, RoleVerifier, RoleCompute}
}

// AgentState is the coarse status of one agent.
type AgentState string

const (
	AgentIdle      AgentState = "idle"
	AgentWaiting   AgentState = "waiting"
	AgentWorking   AgentState = "working"
	AgentCompleted AgentState = "completed"
	AgentError     AgentState = "error"
)

// AgentStatus is one agent's current state.
type AgentStatus struct {
	Role     AgentRole  `json:"role" yaml:"role"`
	State    AgentState `json:"state" yaml:"state"`
	Message  string     `json:"message" yaml:"message"`
	Progress *int       `json:"progress,omitempty" yaml:"progress,omitempty"` // 0..100
}

// LogLevel is the severity class of a log entry.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// LogEntry is one line of the session activity log.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Role    AgentRole `json:"role"`
	Message string    `json:"message"`
	Level   LogLevel  `json:"level"`
}

// FindingKind classifies a finding.
type FindingKind string

const (
	FindingConclusion FindingKind = "conclusion"
	FindingPending    FindingKind = "pending"
)

// Finding is a result surfaced while agents are running.
type Finding struct {
	ID      string      `json:"id"`
	Kind    FindingKind `json:"kind"`
	Content string      `json:"content"`
}

// Level is a coarse low/medium/high rating.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Assumption is a premise stated in the briefing.
type Assumption struct {
	ID      string `json:"id" yaml:"id"`
	Content string `json:"content" yaml:"content"`
	Checked bool   `json:"checked" yaml:"checked"`
}

// Risk is a risk stated in the briefing.
type Risk struct {
	ID      string `json:"id" yaml:"id"`
	Content string `json:"content" yaml:"content"`
	Level   Level  `json:"level" yaml:"level"`
}

// Milestone is one round in the briefing roadmap.
type Milestone struct {
	Round         int    `json:"round" yaml:"round"`
	Title         string `json:"title" yaml:"title"`
	Description   string `json:"description" yaml:"description"`
	EstimatedTime string `json:"estimated_time" yaml:"estimated_time"`
}

// Briefing restates the research question before work starts.
type Briefing struct {
	OriginalQuestion  string       `json:"original_question" yaml:"original_question"`
	RewrittenQuestion string       `json:"rewritten_question" yaml:"rewritten_question"`
	Scope             []string     `json:"scope" yaml:"scope"`
	KeyTerms          []string     `json:"key_terms" yaml:"key_terms"`
	Assumptions       []Assumption `json:"assumptions" yaml:"assumptions"`
	Risks             []Risk       `json:"risks" yaml:"risks"`
	Roadmap           []Milestone  `json:"roadmap" yaml:"roadmap"`
}

// ComputeDecision is the user's answer at the compute checkpoint.
type ComputeDecision string

const (
	ComputeExecute   ComputeDecision = "execute"
	ComputeDowngrade ComputeDecision = "downgrade"
	ComputeSkip      ComputeDecision = "skip"
)

// BriefingDecision is the user's answer at the briefing checkpoint.
type BriefingDecision string

const (
	BriefingContinue BriefingDecision = "continue"
	BriefingAdjust   BriefingDecision = "adjust"
)

// ExecutionPlan describes the optional compute run offered at the checkpoint.
type ExecutionPlan struct {
	ID                   string          `json:"id" yaml:"id"`
	Description          string          `json:"description" yaml:"description"`
	ExpectedOutput       []string        `json:"expected_output" yaml:"expected_output"`
	CostLevel            Level           `json:"cost_level" yaml:"cost_level"`
	RiskLevel            Level           `json:"risk_level" yaml:"risk_level"`
	EstimatedTime        string          `json:"estimated_time" yaml:"estimated_time"`
	Recommendation       ComputeDecision `json:"recommendation" yaml:"recommendation"`
	RecommendationReason string          `json:"recommendation_reason" yaml:"recommendation_reason"`
	DowngradePlan        string          `json:"downgrade_plan" yaml:"downgrade_plan"`
	ComputeStage         string          `json:"compute_stage" yaml:"compute_stage"`
	TotalItems           int             `json:"total_items" yaml:"total_items"`
}

// ComputeStatus tracks a compute run during monitoring.
type ComputeStatus struct {
	Stage              string `json:"stage"`
	CurrentItem        string `json:"current_item"`
	Progress           int    `json:"progress"`
	TotalItems         int    `json:"total_items"`
	IntermediateResult string `json:"intermediate_result,omitempty"`
}

// Conclusion is one verified or unverified result in the deliverable.
type Conclusion struct {
	ID            string `json:"id" yaml:"id"`
	Content       string `json:"content" yaml:"content"`
	Confidence    Level  `json:"confidence" yaml:"confidence"`
	EvidenceCount int    `json:"evidence_count" yaml:"evidence_count"`
	Verified      bool   `json:"verified" yaml:"verified"`
}

// NextStepOption is one follow-up round the user can start from delivery.
type NextStepOption struct {
	ID              string `json:"id" yaml:"id"`
	Title           string `json:"title" yaml:"title"`
	Description     string `json:"description" yaml:"description"`
	EstimatedTime   string `json:"estimated_time" yaml:"estimated_time"`
	ExpectedBenefit Level  `json:"expected_benefit" yaml:"expected_benefit"`
	Recommended     bool   `json:"recommended" yaml:"recommended"`
}

// Deliverable is the output of a round.
type Deliverable struct {
	PaperDraft     string           `json:"paper_draft" yaml:"paper_draft"`
	Conclusions    []Conclusion     `json:"conclusions" yaml:"conclusions"`
	PendingItems   []string         `json:"pending_items" yaml:"pending_items"`
	NextSteps      []NextStepOption `json:"next_steps" yaml:"next_steps"`
	CompletionRate int              `json:"completion_rate" yaml:"completion_rate"`
}

// NextStep returns the option with the given id.
func (d Deliverable) NextStep(id string) (NextStepOption, bool) {
	for _, opt := range d.NextSteps {
		if opt.ID == id {
			return opt, true
		}
	}
	return NextStepOption{}, false
}
