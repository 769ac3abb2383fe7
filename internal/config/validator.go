package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/suitepilot/suitepilot/internal/resource"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "queue.max_size")
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

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"json", "text"}
}

// ValidServerModes returns the list of valid gin modes
func ValidServerModes() []string {
	return []string{"debug", "release", "test"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateOrchestrator()...)
	errors = append(errors, c.validateQueue()...)
	errors = append(errors, c.validatePool()...)
	errors = append(errors, c.validateRunner()...)
	errors = append(errors, c.validateSuites()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateServer()...)

	return errors
}

func (c *Config) validateOrchestrator() []ValidationError {
	var errors []ValidationError

	if c.Orchestrator.MaxConcurrentSessions < 1 {
		errors = append(errors, ValidationError{
			Field:   "orchestrator.max_concurrent_sessions",
			Value:   c.Orchestrator.MaxConcurrentSessions,
			Message: "must be at least 1",
		})
	}
	if c.Orchestrator.MaxRetainedSessions < 0 {
		errors = append(errors, ValidationError{
			Field:   "orchestrator.max_retained_sessions",
			Value:   c.Orchestrator.MaxRetainedSessions,
			Message: "must be non-negative (0 keeps the default)",
		})
	}
	if c.Orchestrator.DispatchIntervalMs < 10 {
		errors = append(errors, ValidationError{
			Field:   "orchestrator.dispatch_interval_ms",
			Value:   c.Orchestrator.DispatchIntervalMs,
			Message: "must be at least 10",
		})
	}

	return errors
}

func (c *Config) validateQueue() []ValidationError {
	var errors []ValidationError

	if c.Queue.MaxSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "queue.max_size",
			Value:   c.Queue.MaxSize,
			Message: "must be at least 1",
		})
	}
	if c.Queue.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.max_retries",
			Value:   c.Queue.MaxRetries,
			Message: "must be non-negative",
		})
	}
	if c.Queue.OptimizeIntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "queue.optimize_interval_seconds",
			Value:   c.Queue.OptimizeIntervalSeconds,
			Message: "must be at least 1",
		})
	}
	for env, w := range c.Queue.PriorityWeights {
		if w < 0 {
			errors = append(errors, ValidationError{
				Field:   "queue.priority_weights." + env,
				Value:   w,
				Message: "must be non-negative",
			})
		}
	}

	return errors
}

func (c *Config) validatePool() []ValidationError {
	var errors []ValidationError

	for _, dim := range resource.Dimensions {
		if v := c.Pool.Limits.Get(dim); v < 0 {
			errors = append(errors, ValidationError{
				Field:   "pool.limits." + dimensionKey(dim),
				Value:   v,
				Message: "must be non-negative (0 uses the detected default)",
			})
		}
	}
	if c.Pool.SampleIntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "pool.sample_interval_seconds",
			Value:   c.Pool.SampleIntervalSeconds,
			Message: "must be at least 1",
		})
	}
	if c.Pool.HistoryHours < 1 {
		errors = append(errors, ValidationError{
			Field:   "pool.history_hours",
			Value:   c.Pool.HistoryHours,
			Message: "must be at least 1",
		})
	}
	if c.Pool.MaxSamples < 1 {
		errors = append(errors, ValidationError{
			Field:   "pool.max_samples",
			Value:   c.Pool.MaxSamples,
			Message: "must be at least 1",
		})
	}
	if c.Pool.PressureThreshold <= 0 || c.Pool.PressureThreshold > 100 {
		errors = append(errors, ValidationError{
			Field:   "pool.pressure_threshold",
			Value:   c.Pool.PressureThreshold,
			Message: "must be between 0 (exclusive) and 100",
		})
	}

	return errors
}

func (c *Config) validateRunner() []ValidationError {
	var errors []ValidationError

	if c.Runner.PassRate < 0 || c.Runner.PassRate > 1 {
		errors = append(errors, ValidationError{
			Field:   "runner.pass_rate",
			Value:   c.Runner.PassRate,
			Message: "must be between 0 and 1",
		})
	}
	if c.Runner.TestDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "runner.test_delay_ms",
			Value:   c.Runner.TestDelayMs,
			Message: "must be non-negative",
		})
	}
	if c.Runner.MinTests < 1 {
		errors = append(errors, ValidationError{
			Field:   "runner.min_tests",
			Value:   c.Runner.MinTests,
			Message: "must be at least 1",
		})
	}
	if c.Runner.MaxTests < c.Runner.MinTests {
		errors = append(errors, ValidationError{
			Field:   "runner.max_tests",
			Value:   c.Runner.MaxTests,
			Message: fmt.Sprintf("must be at least runner.min_tests (%d)", c.Runner.MinTests),
		})
	}

	return errors
}

func (c *Config) validateSuites() []ValidationError {
	var errors []ValidationError

	if c.Suites.Environment == "" {
		errors = append(errors, ValidationError{
			Field:   "suites.environment",
			Value:   c.Suites.Environment,
			Message: "must not be empty",
		})
	}
	if c.Suites.ConcurrencyLevel < 1 {
		errors = append(errors, ValidationError{
			Field:   "suites.concurrency_level",
			Value:   c.Suites.ConcurrencyLevel,
			Message: "must be at least 1",
		})
	}
	if c.Suites.EstimatedDurationSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "suites.estimated_duration_seconds",
			Value:   c.Suites.EstimatedDurationSeconds,
			Message: "must be non-negative",
		})
	}
	if err := c.Suites.Resources.Validate(); err != nil {
		errors = append(errors, ValidationError{
			Field:   "suites.resources",
			Value:   c.Suites.Resources,
			Message: err.Error(),
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Empty level falls back to info
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.Format != "" && !slices.Contains(ValidLogFormats(), c.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}
	if c.Logging.Dir != "" {
		if info, err := os.Stat(c.Logging.Dir); err == nil && !info.IsDir() {
			errors = append(errors, ValidationError{
				Field:   "logging.dir",
				Value:   c.Logging.Dir,
				Message: "exists but is not a directory",
			})
		}
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Address == "" {
		errors = append(errors, ValidationError{
			Field:   "server.address",
			Value:   c.Server.Address,
			Message: "must not be empty",
		})
	}
	if !slices.Contains(ValidServerModes(), c.Server.Mode) {
		errors = append(errors, ValidationError{
			Field:   "server.mode",
			Value:   c.Server.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidServerModes(), ", ")),
		})
	}
	if c.Server.ShutdownTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.shutdown_timeout_seconds",
			Value:   c.Server.ShutdownTimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

func dimensionKey(dim string) string {
	switch dim {
	case resource.DimensionMemory:
		return "memory_mb"
	case resource.DimensionCPU:
		return "cpu_percent"
	case resource.DimensionNetwork:
		return "network_mbps"
	case resource.DimensionStorage:
		return "storage_mb"
	case resource.DimensionUsers:
		return "concurrent_users"
	}
	return dim
}
