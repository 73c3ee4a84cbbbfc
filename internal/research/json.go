package research

import (
	"encoding/json"
	"time"

	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
)

// sessionView is the flattened wire form of a Session. Stage payloads appear
// as optional top-level fields so clients don't need to decode a union.
type sessionView struct {
	ID            string         `json:"id"`
	Topic         string         `json:"topic"`
	Constraints   Constraints    `json:"constraints"`
	Phase         phase.Phase    `json:"phase"`
	Round         int            `json:"round"`
	AgentStatuses []AgentStatus  `json:"agent_statuses"`
	Logs          []LogEntry     `json:"logs"`
	Findings      []Finding      `json:"findings"`
	Briefing      Briefing       `json:"briefing"`
	ExecutionPlan *ExecutionPlan `json:"execution_plan,omitempty"`
	ComputeStatus *ComputeStatus `json:"compute_status,omitempty"`
	Deliverable   *Deliverable   `json:"deliverable,omitempty"`
	LastDelivered *Deliverable   `json:"last_delivered,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// MarshalJSON encodes the session in its flattened wire form.
func (s Session) MarshalJSON() ([]byte, error) {
	v := sessionView{
		ID:            s.ID,
		Topic:         s.Topic,
		Constraints:   s.Constraints,
		Phase:         s.Phase(),
		Round:         s.Round,
		AgentStatuses: nonNil(s.AgentStatuses),
		Logs:          nonNil(s.Logs),
		Findings:      nonNil(s.Findings),
		Briefing:      s.Briefing,
		LastDelivered: s.LastDelivered,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if p, ok := s.ExecutionPlan(); ok {
		v.ExecutionPlan = &p
	}
	if c, ok := s.ComputeStatus(); ok {
		v.ComputeStatus = &c
	}
	if st, ok := s.Stage.(DeliveryStage); ok {
		d := st.Deliverable
		v.Deliverable = &d
	}
	return json.Marshal(v)
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
