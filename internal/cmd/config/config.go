// Package config provides CLI commands for managing svcdeck configuration.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/svcdeck/internal/config"
)

// Wrapper functions for exec to allow testing
var execLookPath = exec.LookPath
var execCommand = exec.Command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify svcdeck configuration",
	Long: `View or modify svcdeck configuration.

Without arguments, shows the effective configuration.
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
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/svcdeck/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in your editor",
	Long: `Open the config file in your preferred editor.

Uses $EDITOR environment variable, or falls back to common editors (vim, nano, vi).
If no config file exists, creates one with default values first.`,
	RunE: runConfigEdit,
}

var configResetCmd = &cobra.Command{
	Use:   "reset [key]",
	Short: "Reset configuration to defaults",
	Long: `Reset configuration values to their defaults.

Without arguments, rewrites the config file with the default values.
With a key argument, resets only that specific key.

Examples:
  svcdeck config reset                         # Reset all to defaults
  svcdeck config reset supervisor.stop_timeout_ms  # Reset one key`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigReset,
}

// setting describes one key accepted by config set.
type setting struct {
	key  string
	kind string // int, bool, string or list
	help string
}

const interpreterPrefix = "services.interpreters."

var settings = []setting{
	{"supervisor.collaborator_timeout_ms", "int", "Timeout for project path and manifest lookups"},
	{"supervisor.stop_timeout_ms", "int", "Grace period before a stopping service is killed"},
	{"supervisor.settle_delay_ms", "int", "Pause between stop and start on restart"},
	{"services.manifest_file", "string", "Manifest file name in the project root"},
	{interpreterPrefix + "<language>", "string", "Interpreter for services of <language>"},
	{"paths.remote_roots", "list", "Comma-separated path prefixes of remote environments"},
	{"paths.launcher", "string", "Executable that runs commands in a remote environment"},
	{"paths.unbuffered_flag", "string", "Flag passed to the interpreter before the script"},
	{"watcher.enabled", "bool", "Watch the project for file changes (true/false)"},
	{"watcher.poll_interval_ms", "int", "Time between two walks of the project"},
	{"watcher.ignore", "list", "Comma-separated glob patterns to skip"},
	{"output.tail_bytes", "int", "Recent output kept per service"},
	{"output.color", "string", "Prefix colouring: auto, always, never"},
	{"output.max_line_width", "int", "Truncate output lines to this width (0 = unlimited)"},
	{"logging.enabled", "bool", "Write the svcdeck log file (true/false)"},
	{"logging.level", "string", "Minimum log level: debug, info, warn, error"},
	{"logging.dir", "string", "Log directory (empty = <config dir>/logs)"},
	{"logging.max_size_mb", "int", "Rotate the log file at this size"},
	{"logging.max_backups", "int", "Rotated log files to keep"},
	{"logging.compress", "bool", "Gzip rotated log files (true/false)"},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configResetCmd)

	var sb strings.Builder
	sb.WriteString("Set a configuration value in the user's config file.\n\n")
	sb.WriteString("Keys use dot notation, e.g.:\n")
	sb.WriteString("  svcdeck config set supervisor.stop_timeout_ms 10000\n")
	sb.WriteString("  svcdeck config set services.interpreters.node node\n")
	sb.WriteString("  svcdeck config set watcher.ignore '.git,node_modules,*.pyc'\n\n")
	sb.WriteString("Valid keys:\n")
	for _, s := range settings {
		fmt.Fprintf(&sb, "  %-38s - %s\n", s.key, s.help)
	}
	configSetCmd.Long = strings.TrimRight(sb.String(), "\n")
}

// Register adds all config-related commands to the given parent command.
// This is the main entry point for integrating the config subpackage with
// the root command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

// lookupSetting finds the setting for key. Interpreter keys match the
// services.interpreters.<language> entry.
func lookupSetting(key string) (setting, bool) {
	if lang, ok := strings.CutPrefix(key, interpreterPrefix); ok {
		if lang == "" || strings.Contains(lang, ".") {
			return setting{}, false
		}
		return setting{key: key, kind: "string"}, true
	}
	for _, s := range settings {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// parseValue converts a command-line value to the type stored for s.
func parseValue(s setting, value string) (any, error) {
	switch s.kind {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", s.key)
		}
		return b, nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", s.key)
		}
		return n, nil
	case "list":
		items := []string{}
		for item := range strings.SplitSeq(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

// defaultValue returns the default for key, if there is one.
func defaultValue(key string) (any, bool) {
	d := appconfig.Default()
	if lang, ok := strings.CutPrefix(key, interpreterPrefix); ok {
		interp, found := d.Services.Interpreters[lang]
		return interp, found
	}
	values := map[string]any{
		"supervisor.collaborator_timeout_ms": d.Supervisor.CollaboratorTimeoutMs,
		"supervisor.stop_timeout_ms":         d.Supervisor.StopTimeoutMs,
		"supervisor.settle_delay_ms":         d.Supervisor.SettleDelayMs,
		"services.manifest_file":             d.Services.ManifestFile,
		"paths.remote_roots":                 d.Paths.RemoteRoots,
		"paths.launcher":                     d.Paths.Launcher,
		"paths.unbuffered_flag":              d.Paths.UnbufferedFlag,
		"watcher.enabled":                    d.Watcher.Enabled,
		"watcher.poll_interval_ms":           d.Watcher.PollIntervalMs,
		"watcher.ignore":                     d.Watcher.Ignore,
		"output.tail_bytes":                  d.Output.TailBytes,
		"output.color":                       d.Output.Color,
		"output.max_line_width":              d.Output.MaxLineWidth,
		"logging.enabled":                    d.Logging.Enabled,
		"logging.level":                      d.Logging.Level,
		"logging.dir":                        d.Logging.Dir,
		"logging.max_size_mb":                d.Logging.MaxSizeMB,
		"logging.max_backups":                d.Logging.MaxBackups,
		"logging.compress":                   d.Logging.Compress,
	}
	v, ok := values[key]
	return v, ok
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n\n")
	}

	if _, err := appconfig.Load(); err != nil {
		fmt.Fprintf(out, "Warning: configuration is invalid, defaults are in effect:\n%v\n\n", err)
	}

	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	s, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'svcdeck config set --help' to see valid keys", key)
	}
	typedValue, err := parseValue(s, value)
	if err != nil {
		return err
	}

	if err := validateWith(key, typedValue); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	viper.Set(key, typedValue)

	configFile, err := writeConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

// validateWith checks the configuration that would result from setting key,
// leaving the active settings untouched.
func validateWith(key string, value any) error {
	v := viper.New()
	if err := v.MergeConfigMap(viper.AllSettings()); err != nil {
		return err
	}
	v.Set(key, value)

	var cfg appconfig.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return appconfig.ValidationErrors(errs)
	}
	return nil
}

// writeConfig writes the current viper settings to the user's config file.
func writeConfig() (string, error) {
	if err := os.MkdirAll(appconfig.ConfigDir(), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := appconfig.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return configFile, nil
}

// defaultConfigContent is the commented config file written by init.
const defaultConfigContent = `# svcdeck configuration

# Session transitions
supervisor:
  # Timeout for looking up the project path and reading the manifest
  collaborator_timeout_ms: 30000
  # Grace period between the terminate signal and a kill when stopping
  stop_timeout_ms: 5000
  # Pause between stopping and starting services on restart
  settle_delay_ms: 500

# Service discovery and launch
services:
  # Manifest file name in the project root (.json, .yaml or .yml)
  manifest_file: services.json
  # Interpreter per service language. Services in other languages are skipped.
  interpreters:
    python: python3

# Services reached through a network path into another environment
paths:
  # Path prefixes that mark a remote environment; the next segment names it
  remote_roots:
    - '\\wsl.localhost\'
    - '\\wsl$\'
  # Executable that runs commands inside the remote environment
  launcher: wsl
  # Passed to the interpreter so output is not block-buffered
  unbuffered_flag: -u

# Project change detection
watcher:
  enabled: true
  poll_interval_ms: 1000
  # Glob patterns matched against relative paths and base names
  ignore: []

# Service output
output:
  # Recent output kept per service, in bytes
  tail_bytes: 65536
  # Prefix colouring: auto, always or never
  color: auto
  # Truncate output lines to this many columns (0 = unlimited)
  max_line_width: 0

# svcdeck's own log (see 'svcdeck logs')
logging:
  enabled: true
  # debug, info, warn or error
  level: info
  # Empty means <config dir>/logs
  dir: ""
  max_size_mb: 10
  max_backups: 3
  compress: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'svcdeck config set' to modify values", configFile)
	}
	if err := writeDefaultConfig(configFile); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize svcdeck's behavior.")
	return nil
}

func writeDefaultConfig(configFile string) error {
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := appconfig.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", configFile)
	fmt.Fprintf(out, "  2. $HOME/.config/svcdeck/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: SVCDECK_* (e.g., SVCDECK_SUPERVISOR_STOP_TIMEOUT_MS)")
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	// Check if config file exists, if not create it
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "Config file doesn't exist, creating with defaults...")
		if err := runConfigInit(cmd, args); err != nil {
			return err
		}
	}

	// Find an editor
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		// Try common editors
		for _, e := range []string{"vim", "nano", "vi"} {
			if _, err := execLookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set $EDITOR environment variable")
	}

	editorCmd := execCommand(editor, configFile)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config file saved: %s\n", configFile)
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		configFile := appconfig.ConfigFile()
		if err := writeDefaultConfig(configFile); err != nil {
			return err
		}
		for _, s := range settings {
			if v, ok := defaultValue(s.key); ok {
				viper.Set(s.key, v)
			}
		}
		fmt.Fprintln(out, "Reset all configuration to defaults.")
		fmt.Fprintf(out, "Config saved to %s\n", configFile)
		return nil
	}

	key := args[0]
	if _, ok := lookupSetting(key); !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'svcdeck config set --help' to see valid keys", key)
	}
	value, ok := defaultValue(key)
	if !ok {
		return fmt.Errorf("%s has no default; remove it with 'svcdeck config edit'", key)
	}
	viper.Set(key, value)

	configFile, err := writeConfig()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Reset %s to default: %v\n", key, value)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}
