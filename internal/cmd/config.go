package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/researchdesk/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify Research Desk configuration",
	Long: `View or modify Research Desk configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  researchdesk config set simulation.step_interval_ms 1500
  researchdesk config set session.default_budget high
  researchdesk config set web.addr 0.0.0.0:8080

Run 'researchdesk config show' to list every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/researchdesk/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// settingKinds lists every settable key and how its value is parsed.
var settingKinds = map[string]string{
	"simulation.start_delay_ms":      "int",
	"simulation.step_interval_ms":    "int",
	"simulation.monitor_interval_ms": "int",
	"simulation.monitor_step":        "int",
	"session.default_budget":         "string",
	"session.default_speed":          "string",
	"session.default_rigor":          "int",
	"content.pack":                   "string",
	"logging.enabled":                "bool",
	"logging.level":                  "string",
	"logging.dir":                    "string",
	"logging.max_size_mb":            "int",
	"logging.max_backups":            "int",
	"tui.max_log_lines":              "int",
	"web.addr":                       "string",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	return showConfig(cmd.OutOrStdout(), config.Get(), viper.ConfigFileUsed())
}

func showConfig(out io.Writer, cfg *config.Config, used string) error {
	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)
	if used != "" {
		fmt.Fprintf(out, "Config file: %s\n", used)
	} else {
		fmt.Fprintln(out, "Config file: (none - using defaults)")
	}
	fmt.Fprintln(out)

	data, err := yaml.Marshal(configView(cfg))
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// configView mirrors Config with the key names used in config files.
func configView(cfg *config.Config) map[string]map[string]any {
	return map[string]map[string]any{
		"simulation": {
			"start_delay_ms":      cfg.Simulation.StartDelayMs,
			"step_interval_ms":    cfg.Simulation.StepIntervalMs,
			"monitor_interval_ms": cfg.Simulation.MonitorIntervalMs,
			"monitor_step":        cfg.Simulation.MonitorStep,
		},
		"session": {
			"default_budget": cfg.Session.DefaultBudget,
			"default_speed":  cfg.Session.DefaultSpeed,
			"default_rigor":  cfg.Session.DefaultRigor,
		},
		"content": {
			"pack": cfg.Content.Pack,
		},
		"logging": {
			"enabled":     cfg.Logging.Enabled,
			"level":       cfg.Logging.Level,
			"dir":         cfg.Logging.Dir,
			"max_size_mb": cfg.Logging.MaxSizeMB,
			"max_backups": cfg.Logging.MaxBackups,
		},
		"tui": {
			"max_log_lines": cfg.TUI.MaxLogLines,
		},
		"web": {
			"addr": cfg.Web.Addr,
		},
	}
}

// parseSetting converts value to the type key expects.
func parseSetting(key, value string) (any, error) {
	kind, ok := settingKinds[key]
	if !ok {
		keys := make([]string, 0, len(settingKinds))
		for k := range settingKinds {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown configuration key: %s\nValid keys: %s", key, strings.Join(keys, ", "))
	}

	switch kind {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return b, nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return n, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	typedValue, err := parseSetting(key, value)
	if err != nil {
		return err
	}

	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("refusing to save invalid configuration: %w", err)
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const defaultConfigFile = `# Research Desk Configuration

# Pacing of the simulated agents
simulation:
  # Pause after a round starts before the first step's interval
  start_delay_ms: 2000
  # Pause before each running step
  step_interval_ms: 3000
  # Pause before each compute progress increment
  monitor_interval_ms: 1000
  # Progress added per compute increment (1-100)
  monitor_step: 10

# Defaults offered when creating a session
session:
  # Options: low, medium, high
  default_budget: medium
  # Options: fast, standard, deep
  default_speed: standard
  # 1-10
  default_rigor: 5

# Content served to sessions
content:
  # Path to a YAML content pack (empty uses the built-in pack)
  pack: ""

# Structured logging
logging:
  enabled: true
  # Options: debug, info, warn, error
  level: info
  # Directory for researchdesk.log (empty: stderr for serve/run, off for the TUI)
  dir: ""
  # Rotate researchdesk.log at this size (0 disables rotation)
  max_size_mb: 10
  # Rotated files to keep
  max_backups: 3

# Terminal UI
tui:
  # Activity log lines shown while agents work
  max_log_lines: 12

# HTTP API for 'researchdesk serve'
web:
  addr: 127.0.0.1:8080
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	return writeDefaultConfig(cmd.OutOrStdout(), config.ConfigDir(), config.ConfigFile())
}

func writeDefaultConfig(out io.Writer, dir, file string) error {
	if _, err := os.Stat(file); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'researchdesk config set' to modify values", file)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(file, []byte(defaultConfigFile), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "Created config file at %s\n", file)
	fmt.Fprintln(out, "Edit this file to customize Research Desk's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. $HOME/.config/researchdesk/config.yaml")
	fmt.Fprintln(out, "  3. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: RESEARCHDESK_* (e.g., RESEARCHDESK_SIMULATION_STEP_INTERVAL_MS)")
	return nil
}
