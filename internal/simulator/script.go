// Package simulator drives simulated agent progress. A Script is the ordered
// list of updates applied while a session is running; a Schedule is a cursor
// over it; a Meter steps compute progress during monitoring; a Task fires
// timed ticks until it is cancelled.
//
// Nothing in this package touches a session directly. Every tick calls back
// into the orchestrator, which decides whether the update still applies.
package simulator

import (
	"fmt"

	"github.com/Iron-Ham/researchdesk/internal/research"
)

// LogLine is a log entry without its timestamp, which is assigned when the
// step is applied.
type LogLine struct {
	Role    research.AgentRole
	Message string
	Level   research.LogLevel
}

// FindingLine is a finding without its id, which is assigned when the step
// is applied so ids stay unique across rounds.
type FindingLine struct {
	Kind    research.FindingKind
	Content string
}

// Step is one discrete update. Agents are merged into the roster by role;
// Logs and Findings are appended. A step with EnterCompute set requests the
// transition to the compute checkpoint and must be the last step.
type Step struct {
	Agents       []research.AgentStatus
	Logs         []LogLine
	Findings     []FindingLine
	EnterCompute bool
}

// Script is the ordered list of steps for one running round.
type Script struct {
	Steps []Step
}

// Validate requires at least one step, with only the final step entering compute.
func (s Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script has no steps")
	}
	for i, st := range s.Steps {
		last := i == len(s.Steps)-1
		if st.EnterCompute != last {
			if last {
				return fmt.Errorf("script: final step %d must enter compute", i)
			}
			return fmt.Errorf("script: step %d enters compute before the end", i)
		}
	}
	return nil
}

// DefaultScript returns the built-in running schedule: the planner finishes
// decomposition, the librarian searches, the reasoner synthesizes, the
// verifier cross-checks, then the compute checkpoint is offered.
func DefaultScript() Script {
	return Script{Steps: []Step{
		{
			Agents: []research.AgentStatus{
				{Role: research.RolePlanner, State: research.AgentCompleted, Message: "Task decomposition complete: 5 sub-tasks"},
				{Role: research.RoleLibrarian, State: research.AgentWorking, Message: "Searching arXiv...", Progress: research.Progress(30)},
				{Role: research.RoleReasoner, State: research.AgentWaiting, Message: "Waiting for evidence"},
				{Role: research.RoleVerifier, State: research.AgentIdle, Message: "Not started"},
			},
			Logs: []LogLine{
				{Role: research.RolePlanner, Message: "Task decomposition complete: 5 sub-tasks", Level: research.LogSuccess},
				{Role: research.RoleLibrarian, Message: "Started arXiv search...", Level: research.LogInfo},
			},
		},
		{
			Agents: []research.AgentStatus{
				{Role: research.RolePlanner, State: research.AgentCompleted, Message: "Task decomposition complete"},
				{Role: research.RoleLibrarian, State: research.AgentWorking, Message: "Found 23 papers", Progress: research.Progress(80)},
				{Role: research.RoleReasoner, State: research.AgentWorking, Message: "Synthesizing evidence..."},
			},
			Logs: []LogLine{
				{Role: research.RoleLibrarian, Message: "Found 23 relevant papers", Level: research.LogSuccess},
				{Role: research.RoleReasoner, Message: "Started synthesis...", Level: research.LogInfo},
			},
			Findings: []FindingLine{
				{Kind: research.FindingConclusion, Content: "Prompt engineering improves code correctness by 15-20%"},
			},
		},
		{
			Agents: []research.AgentStatus{
				{Role: research.RoleLibrarian, State: research.AgentCompleted, Message: "Collected 23 papers", Progress: research.Progress(100)},
				{Role: research.RoleReasoner, State: research.AgentWorking, Message: "Comparing agent architectures..."},
				{Role: research.RoleVerifier, State: research.AgentWorking, Message: "Cross-checking citations..."},
			},
			Logs: []LogLine{
				{Role: research.RoleVerifier, Message: "Started citation cross-check", Level: research.LogInfo},
				{Role: research.RoleReasoner, Message: "ReAct vs CoT evidence is thin, flagged for verification", Level: research.LogWarning},
			},
			Findings: []FindingLine{
				{Kind: research.FindingPending, Content: "ReAct outperforms CoT on complex tasks"},
			},
		},
		{
			Agents: []research.AgentStatus{
				{Role: research.RoleReasoner, State: research.AgentCompleted, Message: "Synthesis drafted"},
				{Role: research.RoleVerifier, State: research.AgentCompleted, Message: "2 of 3 claims verified"},
				{Role: research.RoleCompute, State: research.AgentWaiting, Message: "Awaiting compute decision"},
			},
			Logs: []LogLine{
				{Role: research.RoleCompute, Message: "Execution plan ready for review", Level: research.LogInfo},
			},
			EnterCompute: true,
		},
	}}
}
