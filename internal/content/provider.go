// Package content supplies the phase payloads (briefing, execution plan,
// deliverable) that the orchestrator shows at each checkpoint.
package content

import (
	"context"

	"github.com/Iron-Ham/researchdesk/internal/research"
)

// Provider produces phase payloads. Implementations must not retain or
// mutate the session they are given and must return values that share no
// memory with their internal state.
type Provider interface {
	// Briefing restates the research question for a new session.
	Briefing(ctx context.Context, topic string, c research.Constraints) (research.Briefing, error)

	// ExecutionPlan proposes the compute run for the session's current round.
	ExecutionPlan(ctx context.Context, s research.Session) (research.ExecutionPlan, error)

	// Deliverable assembles the output of the session's current round.
	Deliverable(ctx context.Context, s research.Session) (research.Deliverable, error)
}
