// Package phase defines the lifecycle phases of a research session and the
// state machine that governs movement between them.
package phase

import (
	"slices"
	"time"

	"github.com/Iron-Ham/researchdesk/internal/errors"
)

// Phase represents a discrete stage in the research session lifecycle.
type Phase string

const (
	// PhaseInput is reported when no session exists yet. A live session is
	// never in this phase.
	PhaseInput Phase = "input"

	// PhaseBriefing shows the restated research question and waits for the
	// user to confirm it.
	PhaseBriefing Phase = "briefing"

	// PhaseRunning is where agents work through the simulated schedule.
	PhaseRunning Phase = "running"

	// PhaseCompute offers an optional compute run and waits for a decision.
	PhaseCompute Phase = "compute"

	// PhaseMonitoring tracks an executing compute run.
	PhaseMonitoring Phase = "monitoring"

	// PhaseDelivery presents the round's deliverable and the next-step
	// options. It is not terminal: selecting a next step starts a new round.
	PhaseDelivery Phase = "delivery"
)

// AllPhases returns all defined phases in lifecycle order.
func AllPhases() []Phase {
	return []Phase{
		PhaseInput,
		PhaseBriefing,
		PhaseRunning,
		PhaseCompute,
		PhaseMonitoring,
		PhaseDelivery,
	}
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsValid reports whether p is one of the defined phases.
func (p Phase) IsValid() bool {
	return slices.Contains(AllPhases(), p)
}

// AwaitsDecision reports whether the session waits indefinitely for the user
// in this phase.
func (p Phase) AwaitsDecision() bool {
	return p == PhaseBriefing || p == PhaseCompute || p == PhaseDelivery
}

// IsStoppable reports whether StopSession is accepted in this phase.
func (p Phase) IsStoppable() bool {
	return p == PhaseRunning || p == PhaseCompute || p == PhaseMonitoring
}

// Label returns a short human-readable name.
func (p Phase) Label() string {
	switch p {
	case PhaseInput:
		return "New research"
	case PhaseBriefing:
		return "Briefing"
	case PhaseRunning:
		return "Running"
	case PhaseCompute:
		return "Compute checkpoint"
	case PhaseMonitoring:
		return "Monitoring"
	case PhaseDelivery:
		return "Delivery"
	default:
		return string(p)
	}
}

// ValidTransitions defines which phase transitions are allowed.
// This is the canonical source of truth for the phase state machine.
// Creating a new session is not a transition: it discards the old session
// and starts a fresh one from PhaseInput.
var ValidTransitions = map[Phase][]Phase{
	PhaseInput: {
		PhaseBriefing, // session created
	},

	PhaseBriefing: {
		PhaseRunning, // briefing confirmed
	},

	PhaseRunning: {
		PhaseCompute,  // schedule exhausted
		PhaseDelivery, // stopped
	},

	PhaseCompute: {
		PhaseMonitoring, // execute
		PhaseDelivery,   // downgrade, skip or stop
	},

	PhaseMonitoring: {
		PhaseDelivery, // progress reached 100 or stopped
	},

	PhaseDelivery: {
		PhaseRunning, // next step selected, round+1
	},
}

// CanTransition checks whether a transition from one phase to another is valid
// according to the ValidTransitions map.
func CanTransition(from, to Phase) bool {
	validTargets, exists := ValidTransitions[from]
	if !exists {
		return false
	}
	return slices.Contains(validTargets, to)
}

// Transition captures one applied phase change.
type Transition struct {
	// From is the source phase. PhaseInput marks the session's creation.
	From Phase `json:"from"`

	// To is the destination phase.
	To Phase `json:"to"`

	// Round is the session round after the transition.
	Round int `json:"round"`

	// Timestamp records when the transition occurred.
	Timestamp time.Time `json:"timestamp"`

	// Trigger names the command or scheduled event that caused it
	// (e.g. "confirm_briefing", "schedule_exhausted").
	Trigger string `json:"trigger"`
}

// History is the ordered list of transitions applied to one session.
type History []Transition

// Last returns the most recent transition.
func (h History) Last() (Transition, bool) {
	if len(h) == 0 {
		return Transition{}, false
	}
	return h[len(h)-1], true
}

// Valid reports whether every entry is an allowed edge and consecutive
// entries chain (each From equals the previous To).
func (h History) Valid() bool {
	prev := PhaseInput
	for _, t := range h {
		if t.From != prev || !CanTransition(t.From, t.To) {
			return false
		}
		prev = t.To
	}
	return true
}

// ErrInvalidTransition indicates an attempted transition that is not allowed.
var ErrInvalidTransition = errors.ErrInvalidTransition

// TransitionError wraps transition failures with additional context.
type TransitionError struct {
	From Phase
	To   Phase
	Err  error
}

func (e *TransitionError) Error() string {
	return "phase transition from " + string(e.From) + " to " + string(e.To) +
		" failed: " + e.Err.Error()
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(from, to Phase, err error) *TransitionError {
	return &TransitionError{From: from, To: to, Err: err}
}

// Check returns a TransitionError wrapping ErrInvalidTransition when the edge
// from -> to is not allowed.
func Check(from, to Phase) error {
	if CanTransition(from, to) {
		return nil
	}
	return NewTransitionError(from, to, ErrInvalidTransition)
}
