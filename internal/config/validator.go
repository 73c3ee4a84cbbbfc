package config

import (
	"fmt"
	"net"
	"os"
	"slices"
	"strings"

	"github.com/Iron-Ham/researchdesk/internal/research"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "simulation.monitor_step")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidBudgets returns the list of valid session budgets
func ValidBudgets() []string {
	return []string{string(research.BudgetLow), string(research.BudgetMedium), string(research.BudgetHigh)}
}

// ValidSpeeds returns the list of valid session speeds
func ValidSpeeds() []string {
	return []string{string(research.SpeedFast), string(research.SpeedStandard), string(research.SpeedDeep)}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSimulation()...)
	errors = append(errors, c.validateSession()...)
	errors = append(errors, c.validateContent()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateWeb()...)

	return errors
}

// validateSimulation validates the SimulationConfig
func (c *Config) validateSimulation() []ValidationError {
	var errors []ValidationError

	durations := []struct {
		field string
		value int
	}{
		{"simulation.start_delay_ms", c.Simulation.StartDelayMs},
		{"simulation.step_interval_ms", c.Simulation.StepIntervalMs},
		{"simulation.monitor_interval_ms", c.Simulation.MonitorIntervalMs},
	}
	for _, d := range durations {
		if d.value < 0 {
			errors = append(errors, ValidationError{
				Field:   d.field,
				Value:   d.value,
				Message: "must be non-negative",
			})
		}
	}

	if c.Simulation.MonitorStep < 1 || c.Simulation.MonitorStep > 100 {
		errors = append(errors, ValidationError{
			Field:   "simulation.monitor_step",
			Value:   c.Simulation.MonitorStep,
			Message: "must be between 1 and 100",
		})
	}

	return errors
}

// validateSession validates the SessionConfig
func (c *Config) validateSession() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidBudgets(), c.Session.DefaultBudget) {
		errors = append(errors, ValidationError{
			Field:   "session.default_budget",
			Value:   c.Session.DefaultBudget,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBudgets(), ", ")),
		})
	}

	if !slices.Contains(ValidSpeeds(), c.Session.DefaultSpeed) {
		errors = append(errors, ValidationError{
			Field:   "session.default_speed",
			Value:   c.Session.DefaultSpeed,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidSpeeds(), ", ")),
		})
	}

	if c.Session.DefaultRigor < research.MinRigor || c.Session.DefaultRigor > research.MaxRigor {
		errors = append(errors, ValidationError{
			Field:   "session.default_rigor",
			Value:   c.Session.DefaultRigor,
			Message: fmt.Sprintf("must be between %d and %d", research.MinRigor, research.MaxRigor),
		})
	}

	return errors
}

// validateContent validates the ContentConfig
func (c *Config) validateContent() []ValidationError {
	var errors []ValidationError

	if c.Content.Pack != "" {
		info, err := os.Stat(c.Content.Pack)
		switch {
		case err != nil:
			errors = append(errors, ValidationError{
				Field:   "content.pack",
				Value:   c.Content.Pack,
				Message: "file does not exist",
			})
		case info.IsDir():
			errors = append(errors, ValidationError{
				Field:   "content.pack",
				Value:   c.Content.Pack,
				Message: "must be a file, not a directory",
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.MaxLogLines < 1 {
		errors = append(errors, ValidationError{
			Field:   "tui.max_log_lines",
			Value:   c.TUI.MaxLogLines,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateWeb validates the WebConfig
func (c *Config) validateWeb() []ValidationError {
	var errors []ValidationError

	if _, _, err := net.SplitHostPort(c.Web.Addr); err != nil {
		errors = append(errors, ValidationError{
			Field:   "web.addr",
			Value:   c.Web.Addr,
			Message: "must be host:port",
		})
	}

	return errors
}
