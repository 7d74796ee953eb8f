package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "supervisor.stop_timeout_ms")
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
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidColorModes returns the list of valid output colour modes
func ValidColorModes() []string {
	return []string{"auto", "always", "never"}
}

const (
	maxTimeoutMs      = 10 * 60 * 1000 // 10 minutes
	minPollIntervalMs = 50
	maxTailBytes      = 16 * 1024 * 1024
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSupervisor()...)
	errors = append(errors, c.validateServices()...)
	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateWatcher()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateSupervisor validates the SupervisorConfig
func (c *Config) validateSupervisor() []ValidationError {
	var errors []ValidationError

	positive := []struct {
		field string
		value int
	}{
		{"supervisor.collaborator_timeout_ms", c.Supervisor.CollaboratorTimeoutMs},
		{"supervisor.stop_timeout_ms", c.Supervisor.StopTimeoutMs},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "must be positive",
			})
		} else if p.value > maxTimeoutMs {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: fmt.Sprintf("exceeds maximum of %dms", maxTimeoutMs),
			})
		}
	}

	if c.Supervisor.SettleDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "supervisor.settle_delay_ms",
			Value:   c.Supervisor.SettleDelayMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateServices validates the ServicesConfig
func (c *Config) validateServices() []ValidationError {
	var errors []ValidationError

	name := c.Services.ManifestFile
	if strings.TrimSpace(name) == "" {
		errors = append(errors, ValidationError{
			Field:   "services.manifest_file",
			Value:   name,
			Message: "must not be empty",
		})
	} else if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		errors = append(errors, ValidationError{
			Field:   "services.manifest_file",
			Value:   name,
			Message: "must be a file name, not a path",
		})
	}

	for _, lang := range c.Services.Languages() {
		if strings.TrimSpace(c.Services.Interpreters[lang]) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("services.interpreters.%s", lang),
				Value:   c.Services.Interpreters[lang],
				Message: "interpreter must not be empty",
			})
		}
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	for i, root := range c.Paths.RemoteRoots {
		if strings.TrimSpace(root) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("paths.remote_roots[%d]", i),
				Value:   root,
				Message: "must not be empty",
			})
		}
	}

	if len(c.Paths.RemoteRoots) > 0 && strings.TrimSpace(c.Paths.Launcher) == "" {
		errors = append(errors, ValidationError{
			Field:   "paths.launcher",
			Value:   c.Paths.Launcher,
			Message: "must be set when remote_roots is configured",
		})
	}

	if strings.ContainsAny(c.Paths.UnbufferedFlag, " \t") {
		errors = append(errors, ValidationError{
			Field:   "paths.unbuffered_flag",
			Value:   c.Paths.UnbufferedFlag,
			Message: "must be a single argument",
		})
	}

	return errors
}

// validateWatcher validates the WatcherConfig
func (c *Config) validateWatcher() []ValidationError {
	var errors []ValidationError

	if c.Watcher.PollIntervalMs < minPollIntervalMs {
		errors = append(errors, ValidationError{
			Field:   "watcher.poll_interval_ms",
			Value:   c.Watcher.PollIntervalMs,
			Message: fmt.Sprintf("must be at least %dms", minPollIntervalMs),
		})
	}

	for i, pattern := range c.Watcher.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("watcher.ignore[%d]", i),
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	return errors
}

// validateOutput validates the OutputConfig
func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if c.Output.TailBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "output.tail_bytes",
			Value:   c.Output.TailBytes,
			Message: "must be positive",
		})
	} else if c.Output.TailBytes > maxTailBytes {
		errors = append(errors, ValidationError{
			Field:   "output.tail_bytes",
			Value:   c.Output.TailBytes,
			Message: fmt.Sprintf("exceeds maximum of %d bytes", maxTailBytes),
		})
	}

	if c.Output.Color != "" && !slices.Contains(ValidColorModes(), c.Output.Color) {
		errors = append(errors, ValidationError{
			Field:   "output.color",
			Value:   c.Output.Color,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidColorModes(), ", ")),
		})
	}

	if c.Output.MaxLineWidth < 0 {
		errors = append(errors, ValidationError{
			Field:   "output.max_line_width",
			Value:   c.Output.MaxLineWidth,
			Message: "must be non-negative (0 disables truncation)",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	if strings.ContainsRune(c.Logging.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "path contains invalid null character",
		})
	}

	return errors
}
