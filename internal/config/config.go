package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/researchdesk/internal/research"
	"github.com/Iron-Ham/researchdesk/internal/simulator"
)

// Config represents the complete researchdesk configuration
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Session    SessionConfig    `mapstructure:"session"`
	Content    ContentConfig    `mapstructure:"content"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	TUI        TUIConfig        `mapstructure:"tui"`
	Web        WebConfig        `mapstructure:"web"`
}

// SimulationConfig controls the pace of simulated agent progress
type SimulationConfig struct {
	// StartDelayMs is the pause after a round starts before the first step's interval (default: 2000)
	StartDelayMs int `mapstructure:"start_delay_ms"`
	// StepIntervalMs is the pause before each running step (default: 3000)
	StepIntervalMs int `mapstructure:"step_interval_ms"`
	// MonitorIntervalMs is the pause before each compute progress increment (default: 1000)
	MonitorIntervalMs int `mapstructure:"monitor_interval_ms"`
	// MonitorStep is the progress added per monitoring tick, 1-100 (default: 10)
	MonitorStep int `mapstructure:"monitor_step"`
}

// SessionConfig holds the constraints new sessions start from
type SessionConfig struct {
	// DefaultBudget is one of "low", "medium", "high" (default: "medium")
	DefaultBudget string `mapstructure:"default_budget"`
	// DefaultSpeed is one of "fast", "standard", "deep" (default: "standard")
	DefaultSpeed string `mapstructure:"default_speed"`
	// DefaultRigor is 1-10 (default: 5)
	DefaultRigor int `mapstructure:"default_rigor"`
}

// ContentConfig selects the content pack
type ContentConfig struct {
	// Pack is a path to a YAML content pack. Empty uses the built-in pack.
	Pack string `mapstructure:"pack"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for researchdesk.log. Empty logs to stderr for
	// serve and run, and discards logs in the TUI.
	Dir string `mapstructure:"dir"`
	// MaxSizeMB rotates researchdesk.log once it reaches this size. 0 disables rotation.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files kept (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// TUIConfig controls the terminal UI
type TUIConfig struct {
	// MaxLogLines is how many activity log lines the running view shows (default: 12)
	MaxLogLines int `mapstructure:"max_log_lines"`
}

// WebConfig controls the HTTP API
type WebConfig struct {
	// Addr is the listen address for "researchdesk serve" (default: "127.0.0.1:8080")
	Addr string `mapstructure:"addr"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			StartDelayMs:      2000,
			StepIntervalMs:    3000,
			MonitorIntervalMs: 1000,
			MonitorStep:       10,
		},
		Session: SessionConfig{
			DefaultBudget: string(research.BudgetMedium),
			DefaultSpeed:  string(research.SpeedStandard),
			DefaultRigor:  5,
		},
		Content: ContentConfig{},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		TUI: TUIConfig{
			MaxLogLines: 12,
		},
		Web: WebConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Timing converts the simulation settings for the orchestrator
func (c *SimulationConfig) Timing() simulator.Timing {
	return simulator.Timing{
		StartDelay:      time.Duration(c.StartDelayMs) * time.Millisecond,
		StepInterval:    time.Duration(c.StepIntervalMs) * time.Millisecond,
		MonitorInterval: time.Duration(c.MonitorIntervalMs) * time.Millisecond,
		MonitorStep:     c.MonitorStep,
	}
}

// Constraints returns the configured default constraints
func (c *SessionConfig) Constraints() research.Constraints {
	return research.Constraints{
		Budget: research.Budget(c.DefaultBudget),
		Speed:  research.Speed(c.DefaultSpeed),
		Rigor:  c.DefaultRigor,
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Simulation defaults
	viper.SetDefault("simulation.start_delay_ms", defaults.Simulation.StartDelayMs)
	viper.SetDefault("simulation.step_interval_ms", defaults.Simulation.StepIntervalMs)
	viper.SetDefault("simulation.monitor_interval_ms", defaults.Simulation.MonitorIntervalMs)
	viper.SetDefault("simulation.monitor_step", defaults.Simulation.MonitorStep)

	// Session defaults
	viper.SetDefault("session.default_budget", defaults.Session.DefaultBudget)
	viper.SetDefault("session.default_speed", defaults.Session.DefaultSpeed)
	viper.SetDefault("session.default_rigor", defaults.Session.DefaultRigor)

	// Content defaults
	viper.SetDefault("content.pack", defaults.Content.Pack)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// TUI defaults
	viper.SetDefault("tui.max_log_lines", defaults.TUI.MaxLogLines)

	// Web defaults
	viper.SetDefault("web.addr", defaults.Web.Addr)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return loadFrom(viper.GetViper())
}

func loadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "researchdesk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".researchdesk"
	}
	return filepath.Join(home, ".config", "researchdesk")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
