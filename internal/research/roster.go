package research

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/researchdesk/internal/errors"
)

// InitialRoster returns one status per role for the start of a round: the
// first role working with leadMessage, its successor waiting, the rest idle.
func InitialRoster(leadMessage string) []AgentStatus {
	roles := Roster()
	out := make([]AgentStatus, len(roles))
	for i, role := range roles {
		switch i {
		case 0:
			out[i] = AgentStatus{Role: role, State: AgentWorking, Message: leadMessage}
		case 1:
			out[i] = AgentStatus{Role: role, State: AgentWaiting, Message: "Waiting for the task breakdown"}
		default:
			out[i] = AgentStatus{Role: role, State: AgentIdle, Message: "Not started"}
		}
	}
	return out
}

// MergeAgents returns current with each update replacing the slot of the same
// role. Updates for roles not in current are ignored so the roster length
// never changes.
func MergeAgents(current, updates []AgentStatus) []AgentStatus {
	out := cloneAgents(current)
	for _, u := range updates {
		for i := range out {
			if out[i].Role == u.Role {
				out[i] = u.Clone()
				break
			}
		}
	}
	return out
}

// ParseBudget returns the Budget for s, case-insensitively.
func ParseBudget(s string) (Budget, error) {
	switch b := Budget(strings.ToLower(strings.TrimSpace(s))); b {
	case BudgetLow, BudgetMedium, BudgetHigh:
		return b, nil
	}
	return "", errors.NewValidationError("must be one of: low, medium, high").
		WithField("budget").WithValue(s)
}

// ParseSpeed returns the Speed for s, case-insensitively.
func ParseSpeed(s string) (Speed, error) {
	switch v := Speed(strings.ToLower(strings.TrimSpace(s))); v {
	case SpeedFast, SpeedStandard, SpeedDeep:
		return v, nil
	}
	return "", errors.NewValidationError("must be one of: fast, standard, deep").
		WithField("speed").WithValue(s)
}

// Validate reports the first invalid field of c.
func (c Constraints) Validate() error {
	switch c.Budget {
	case BudgetLow, BudgetMedium, BudgetHigh:
	default:
		return errors.NewValidationError("must be one of: low, medium, high").
			WithField("constraints.budget").WithValue(string(c.Budget))
	}
	switch c.Speed {
	case SpeedFast, SpeedStandard, SpeedDeep:
	default:
		return errors.NewValidationError("must be one of: fast, standard, deep").
			WithField("constraints.speed").WithValue(string(c.Speed))
	}
	if c.Rigor < MinRigor || c.Rigor > MaxRigor {
		return errors.NewValidationError(fmt.Sprintf("must be between %d and %d", MinRigor, MaxRigor)).
			WithField("constraints.rigor").WithValue(c.Rigor)
	}
	return nil
}
