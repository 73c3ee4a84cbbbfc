package event

import (
	"time"

	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
	"github.com/Iron-Ham/researchdesk/internal/research"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "session.created", "phase.changed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// SessionCarrier is implemented by events that carry a session snapshot.
type SessionCarrier interface {
	SessionSnapshot() (research.Session, bool)
}

// Event type identifiers.
const (
	TypeSessionCreated   = "session.created"
	TypeSessionUpdated   = "session.updated"
	TypePhaseChanged     = "phase.changed"
	TypeSessionReset     = "session.reset"
	TypeAdjustRequested  = "briefing.adjust_requested"
	TypeCommandRejected  = "command.rejected"
	TypeSimulationCancel = "simulation.cancelled"
	TypeContentFailed    = "content.failed"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string, at time.Time) baseEvent {
	if at.IsZero() {
		at = time.Now()
	}
	return baseEvent{eventType: eventType, timestamp: at}
}

// snapshot is embedded by events that carry the session as it was right
// after the mutation.
type snapshot struct {
	Session research.Session
}

func (s snapshot) SessionSnapshot() (research.Session, bool) { return s.Session, true }

// -----------------------------------------------------------------------------
// Session Lifecycle Events
// -----------------------------------------------------------------------------

// SessionCreatedEvent is emitted when a new session replaces whatever existed.
type SessionCreatedEvent struct {
	baseEvent
	snapshot
	ReplacedID string // ID of the discarded session, empty if none
}

// NewSessionCreatedEvent creates a SessionCreatedEvent.
func NewSessionCreatedEvent(at time.Time, s research.Session, replacedID string) SessionCreatedEvent {
	return SessionCreatedEvent{
		baseEvent:  newBaseEvent(TypeSessionCreated, at),
		snapshot:   snapshot{Session: s},
		ReplacedID: replacedID,
	}
}

// SessionUpdatedEvent is emitted after any mutation that did not change phase.
type SessionUpdatedEvent struct {
	baseEvent
	snapshot
	Cause string // command or tick that produced the update
}

// NewSessionUpdatedEvent creates a SessionUpdatedEvent.
func NewSessionUpdatedEvent(at time.Time, s research.Session, cause string) SessionUpdatedEvent {
	return SessionUpdatedEvent{
		baseEvent: newBaseEvent(TypeSessionUpdated, at),
		snapshot:  snapshot{Session: s},
		Cause:     cause,
	}
}

// PhaseChangedEvent is emitted when the session moves between phases.
type PhaseChangedEvent struct {
	baseEvent
	snapshot
	Transition phase.Transition
}

// NewPhaseChangedEvent creates a PhaseChangedEvent.
func NewPhaseChangedEvent(s research.Session, tr phase.Transition) PhaseChangedEvent {
	return PhaseChangedEvent{
		baseEvent:  newBaseEvent(TypePhaseChanged, tr.Timestamp),
		snapshot:   snapshot{Session: s},
		Transition: tr,
	}
}

// SessionResetEvent is emitted when the session is dropped.
type SessionResetEvent struct {
	baseEvent
	SessionID string
}

// NewSessionResetEvent creates a SessionResetEvent.
func NewSessionResetEvent(at time.Time, sessionID string) SessionResetEvent {
	return SessionResetEvent{
		baseEvent: newBaseEvent(TypeSessionReset, at),
		SessionID: sessionID,
	}
}

// -----------------------------------------------------------------------------
// Command Events
// -----------------------------------------------------------------------------

// AdjustRequestedEvent is emitted when the user asks to adjust the briefing.
// The session is left unchanged.
type AdjustRequestedEvent struct {
	baseEvent
	snapshot
}

// NewAdjustRequestedEvent creates an AdjustRequestedEvent.
func NewAdjustRequestedEvent(at time.Time, s research.Session) AdjustRequestedEvent {
	return AdjustRequestedEvent{
		baseEvent: newBaseEvent(TypeAdjustRequested, at),
		snapshot:  snapshot{Session: s},
	}
}

// CommandRejectedEvent is emitted when a command fails validation.
type CommandRejectedEvent struct {
	baseEvent
	Command string
	Phase   phase.Phase
	Err     error
}

// NewCommandRejectedEvent creates a CommandRejectedEvent.
func NewCommandRejectedEvent(at time.Time, command string, p phase.Phase, err error) CommandRejectedEvent {
	return CommandRejectedEvent{
		baseEvent: newBaseEvent(TypeCommandRejected, at),
		Command:   command,
		Phase:     p,
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Simulation Events
// -----------------------------------------------------------------------------

// SimulationCancelledEvent is emitted when a running or monitoring task is
// cancelled before it finished on its own.
type SimulationCancelledEvent struct {
	baseEvent
	SessionID  string
	Generation uint64
	Reason     string // "stopped", "replaced", "reset"
}

// NewSimulationCancelledEvent creates a SimulationCancelledEvent.
func NewSimulationCancelledEvent(at time.Time, sessionID string, generation uint64, reason string) SimulationCancelledEvent {
	return SimulationCancelledEvent{
		baseEvent:  newBaseEvent(TypeSimulationCancel, at),
		SessionID:  sessionID,
		Generation: generation,
		Reason:     reason,
	}
}

// ContentFailedEvent is emitted when a scheduled transition could not fetch
// its payload. The session stays in its current phase.
type ContentFailedEvent struct {
	baseEvent
	snapshot
	Payload string // "execution_plan" or "deliverable"
	Err     error
}

// NewContentFailedEvent creates a ContentFailedEvent.
func NewContentFailedEvent(at time.Time, s research.Session, payload string, err error) ContentFailedEvent {
	return ContentFailedEvent{
		baseEvent: newBaseEvent(TypeContentFailed, at),
		snapshot:  snapshot{Session: s},
		Payload:   payload,
		Err:       err,
	}
}
