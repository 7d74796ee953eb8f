package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete svcdeck configuration
type Config struct {
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Services   ServicesConfig   `mapstructure:"services"`
	Paths      PathsConfig      `mapstructure:"paths"`
	Watcher    WatcherConfig    `mapstructure:"watcher"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SupervisorConfig controls session transitions
type SupervisorConfig struct {
	// CollaboratorTimeoutMs bounds each request for the project path or the
	// services manifest (default: 30000)
	CollaboratorTimeoutMs int `mapstructure:"collaborator_timeout_ms"`
	// StopTimeoutMs is how long a service gets to exit after the terminate
	// signal before it is killed (default: 5000)
	StopTimeoutMs int `mapstructure:"stop_timeout_ms"`
	// SettleDelayMs is the pause between teardown and respawn on restart (default: 500)
	SettleDelayMs int `mapstructure:"settle_delay_ms"`
}

// ServicesConfig controls how services are discovered and launched
type ServicesConfig struct {
	// ManifestFile is the manifest file name inside the project (default: "services.json")
	ManifestFile string `mapstructure:"manifest_file"`
	// Interpreters maps a service language to the interpreter that runs it.
	// Services in languages not listed here are skipped.
	Interpreters map[string]string `mapstructure:"interpreters"`
}

// PathsConfig controls path translation for services in a remote environment
type PathsConfig struct {
	// RemoteRoots are the path prefixes that mark a remote environment
	RemoteRoots []string `mapstructure:"remote_roots"`
	// Launcher is the executable that runs commands inside the remote environment (default: "wsl")
	Launcher string `mapstructure:"launcher"`
	// UnbufferedFlag is passed to the interpreter before the script (default: "-u")
	UnbufferedFlag string `mapstructure:"unbuffered_flag"`
}

// WatcherConfig controls the change detector
type WatcherConfig struct {
	// Enabled turns the change detector on for `svcdeck run` (default: true)
	Enabled bool `mapstructure:"enabled"`
	// PollIntervalMs is the time between two walks (default: 1000)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// Ignore lists glob patterns matched against relative paths and base names
	Ignore []string `mapstructure:"ignore"`
}

// OutputConfig controls how service output is shown
type OutputConfig struct {
	// TailBytes is how much recent output is kept per service (default: 65536)
	TailBytes int `mapstructure:"tail_bytes"`
	// Color selects prefix colouring: "auto", "always" or "never" (default: "auto")
	Color string `mapstructure:"color"`
	// MaxLineWidth truncates printed lines to this many cells (0 = unlimited)
	MaxLineWidth int `mapstructure:"max_line_width"`
}

// LoggingConfig controls svcdeck's own debug logging
type LoggingConfig struct {
	// Enabled writes the log file (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum level written: debug, info, warn, error (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the log directory. Empty means <config dir>/logs.
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the size at which the log file is rotated (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files kept (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated files (default: false)
	Compress bool `mapstructure:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Supervisor: SupervisorConfig{
			CollaboratorTimeoutMs: 30000,
			StopTimeoutMs:         5000,
			SettleDelayMs:         500,
		},
		Services: ServicesConfig{
			ManifestFile: "services.json",
			Interpreters: map[string]string{"python": "python3"},
		},
		Paths: PathsConfig{
			RemoteRoots:    []string{`\\wsl.localhost\`, `\\wsl$\`},
			Launcher:       "wsl",
			UnbufferedFlag: "-u",
		},
		Watcher: WatcherConfig{
			Enabled:        true,
			PollIntervalMs: 1000,
			Ignore:         []string{},
		},
		Output: OutputConfig{
			TailBytes:    64 * 1024,
			Color:        "auto",
			MaxLineWidth: 0,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// CollaboratorTimeout returns the collaborator timeout as a time.Duration
func (c *SupervisorConfig) CollaboratorTimeout() time.Duration {
	return time.Duration(c.CollaboratorTimeoutMs) * time.Millisecond
}

// StopTimeout returns the stop timeout as a time.Duration
func (c *SupervisorConfig) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMs) * time.Millisecond
}

// SettleDelay returns the restart settle delay as a time.Duration
func (c *SupervisorConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// PollInterval returns the watcher poll interval as a time.Duration
func (c *WatcherConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Languages returns the configured service languages, sorted
func (c *ServicesConfig) Languages() []string {
	langs := make([]string, 0, len(c.Interpreters))
	for lang := range c.Interpreters {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// ResolveLogDir returns the log directory.
// If Dir is empty, it returns <config dir>/logs.
// If Dir starts with ~, it expands to the user's home directory.
func (c *LoggingConfig) ResolveLogDir() string {
	if c.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}
	return expandHome(c.Dir)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Supervisor defaults
	viper.SetDefault("supervisor.collaborator_timeout_ms", defaults.Supervisor.CollaboratorTimeoutMs)
	viper.SetDefault("supervisor.stop_timeout_ms", defaults.Supervisor.StopTimeoutMs)
	viper.SetDefault("supervisor.settle_delay_ms", defaults.Supervisor.SettleDelayMs)

	// Services defaults
	viper.SetDefault("services.manifest_file", defaults.Services.ManifestFile)
	viper.SetDefault("services.interpreters", defaults.Services.Interpreters)

	// Paths defaults
	viper.SetDefault("paths.remote_roots", defaults.Paths.RemoteRoots)
	viper.SetDefault("paths.launcher", defaults.Paths.Launcher)
	viper.SetDefault("paths.unbuffered_flag", defaults.Paths.UnbufferedFlag)

	// Watcher defaults
	viper.SetDefault("watcher.enabled", defaults.Watcher.Enabled)
	viper.SetDefault("watcher.poll_interval_ms", defaults.Watcher.PollIntervalMs)
	viper.SetDefault("watcher.ignore", defaults.Watcher.Ignore)

	// Output defaults
	viper.SetDefault("output.tail_bytes", defaults.Output.TailBytes)
	viper.SetDefault("output.color", defaults.Output.Color)
	viper.SetDefault("output.max_line_width", defaults.Output.MaxLineWidth)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
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
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "svcdeck")
	}
	// Fall back to ~/.config/svcdeck
	home, err := os.UserHomeDir()
	if err != nil {
		return ".svcdeck"
	}
	return filepath.Join(home, ".config", "svcdeck")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
