package simulator

// Schedule is a cursor over a Script. The caller peeks at the next step,
// applies it, and only then commits with Advance, so a step that fails to
// apply is retried rather than skipped. Schedule is not safe for concurrent
// use; the orchestrator serializes access.
type Schedule struct {
	script Script
	cursor int
}

// NewSchedule returns a schedule positioned before the first step.
func NewSchedule(script Script) *Schedule {
	return &Schedule{script: script}
}

// Peek returns the next step without consuming it.
func (s *Schedule) Peek() (Step, bool) {
	if s.Exhausted() {
		return Step{}, false
	}
	return s.script.Steps[s.cursor], true
}

// Advance consumes the next step. It is a no-op once exhausted.
func (s *Schedule) Advance() {
	if !s.Exhausted() {
		s.cursor++
	}
}

// Next returns and consumes the next step.
func (s *Schedule) Next() (Step, bool) {
	st, ok := s.Peek()
	if ok {
		s.Advance()
	}
	return st, ok
}

// Position returns the number of steps consumed.
func (s *Schedule) Position() int {
	return s.cursor
}

// Remaining returns the number of steps not yet consumed.
func (s *Schedule) Remaining() int {
	return len(s.script.Steps) - s.cursor
}

// Exhausted reports whether every step has been consumed.
func (s *Schedule) Exhausted() bool {
	return s.cursor >= len(s.script.Steps)
}
