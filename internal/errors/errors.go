// Package errors provides the error taxonomy for researchdesk. It defines the
// sentinel errors returned by the session orchestrator, typed errors that carry
// command and session context, and classification helpers used by the
// presentation layers to decide how a failure is shown.
//
// # Error Types
//
//   - CommandError: an orchestrator command was rejected (wrong phase, no
//     session, unknown option)
//   - ContentError: the content provider could not supply a phase payload
//   - ValidationError: invalid user input (blank topic, out-of-range rigor)
//
// # Usage
//
//	err := errors.NewCommandError("decide_compute", errors.ErrInvalidTransition).
//		WithPhase("running").
//		WithSessionID("session-1234")
//
//	if errors.Is(err, errors.ErrInvalidTransition) { ... }
//
//	var cmdErr *errors.CommandError
//	if errors.As(err, &cmdErr) { ... }
//
// All errors in this package are local and non-fatal: the session stays in
// its last valid phase.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Orchestrator sentinel errors
var (
	// ErrInvalidTransition indicates a command was invoked from a phase that
	// does not permit it.
	ErrInvalidTransition = New("invalid phase transition")
	// ErrNoSession indicates a command that needs a session was invoked with
	// none present. It matches ErrInvalidTransition.
	ErrNoSession = fmt.Errorf("no active session: %w", ErrInvalidTransition)
	// ErrUnknownOption indicates a next-step selection referenced an option id
	// that the current deliverable does not offer.
	ErrUnknownOption = New("unknown next-step option")
	// ErrEmptyTopic indicates session creation with a blank topic.
	ErrEmptyTopic = New("research topic is empty")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrContentUnavailable indicates the content provider failed to supply a payload.
	ErrContentUnavailable = New("content unavailable")
)

// -----------------------------------------------------------------------------
// Base Error
// -----------------------------------------------------------------------------

// DeskError is implemented by every typed error in this package.
type DeskError interface {
	error
	Unwrap() error
	Severity() Severity
	IsRetryable() bool
	IsUserFacing() bool
}

type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error      { return e.cause }
func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }

// format renders "<kind> [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.message == "" {
		if e.cause != nil {
			return fmt.Sprintf("%s: %v", prefix, e.cause)
		}
		return prefix
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// CommandError
// -----------------------------------------------------------------------------

// CommandError reports a rejected orchestrator command.
//
// Example:
//
//	err := errors.NewCommandError("stop_session", errors.ErrInvalidTransition).
//		WithPhase("briefing").WithSessionID("session-abc")
//	fmt.Println(err) // "command error [command=stop_session, phase=briefing, session=session-abc]: invalid phase transition"
type CommandError struct {
	baseError
	Command   string
	Phase     string
	SessionID string
}

// NewCommandError creates a CommandError for the named command. A rejection
// is a warning; when cause is itself a DeskError its severity (if higher) and
// retryability carry over.
func NewCommandError(command string, cause error) *CommandError {
	e := &CommandError{
		baseError: baseError{
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Command: command,
	}
	var de DeskError
	if As(cause, &de) {
		e.severity = max(e.severity, de.Severity())
		e.retryable = de.IsRetryable()
	}
	return e
}

// WithPhase records the phase the session was in when the command was rejected.
func (e *CommandError) WithPhase(phase string) *CommandError {
	e.Phase = phase
	return e
}

// WithSessionID adds a session ID to the error context.
func (e *CommandError) WithSessionID(id string) *CommandError {
	e.SessionID = id
	return e
}

// WithMessage adds a human-readable detail placed before the cause.
func (e *CommandError) WithMessage(msg string) *CommandError {
	e.message = msg
	return e
}

// Error returns the formatted error message.
func (e *CommandError) Error() string {
	var parts []string
	if e.Command != "" {
		parts = append(parts, "command="+e.Command)
	}
	if e.Phase != "" {
		parts = append(parts, "phase="+e.Phase)
	}
	if e.SessionID != "" {
		parts = append(parts, "session="+e.SessionID)
	}
	return e.format("command error", parts)
}

// Is matches any *CommandError target as well as the wrapped cause.
func (e *CommandError) Is(target error) bool {
	if _, ok := target.(*CommandError); ok {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// ContentError
// -----------------------------------------------------------------------------

// ContentError reports a content provider failure for one payload kind
// ("briefing", "execution_plan", "deliverable").
type ContentError struct {
	baseError
	Payload   string
	SessionID string
}

// NewContentError creates a ContentError wrapping the provider's error.
func NewContentError(payload string, cause error) *ContentError {
	return &ContentError{
		baseError: baseError{
			message:    "content provider failed",
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
		Payload: payload,
	}
}

// WithSessionID adds a session ID to the error context.
func (e *ContentError) WithSessionID(id string) *ContentError {
	e.SessionID = id
	return e
}

// Error returns the formatted error message.
func (e *ContentError) Error() string {
	var parts []string
	if e.Payload != "" {
		parts = append(parts, "payload="+e.Payload)
	}
	if e.SessionID != "" {
		parts = append(parts, "session="+e.SessionID)
	}
	return e.format("content error", parts)
}

// Is matches ErrContentUnavailable, any *ContentError and the wrapped cause.
func (e *ContentError) Is(target error) bool {
	if _, ok := target.(*ContentError); ok {
		return true
	}
	if target == ErrContentUnavailable {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// ValidationError
// -----------------------------------------------------------------------------

// ValidationError represents invalid input.
//
// Example:
//
//	err := errors.NewValidationError("must be between 1 and 10").
//		WithField("constraints.rigor").WithValue(42)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, "field="+e.Field)
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return e.format("validation error", parts)
}

// Is matches ErrInvalidInput, any *ValidationError and the wrapped cause.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidInput {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient. Only content failures
// qualify; rejected commands fail the same way until the phase changes.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var de DeskError
	if As(err, &de) {
		return de.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var de DeskError
	if As(err, &de) {
		return de.IsUserFacing()
	}
	return Is(err, ErrInvalidTransition) || Is(err, ErrUnknownOption) || Is(err, ErrEmptyTopic)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement DeskError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var de DeskError
	if As(err, &de) {
		return de.Severity()
	}
	return SeverityError
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
