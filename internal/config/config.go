package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/suitepilot/suitepilot/internal/resource"
)

// Config represents the complete suitepilot configuration
type Config struct {
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Pool         PoolConfig         `mapstructure:"pool"`
	Runner       RunnerConfig       `mapstructure:"runner"`
	Suites       SuiteDefaults      `mapstructure:"suites"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Server       ServerConfig       `mapstructure:"server"`
}

// OrchestratorConfig controls session admission and retention
type OrchestratorConfig struct {
	// MaxConcurrentSessions is how many sessions may execute at once (default: 5)
	MaxConcurrentSessions int `mapstructure:"max_concurrent_sessions"`
	// MaxRetainedSessions is how many finished sessions are kept in memory (default: 1000)
	MaxRetainedSessions int `mapstructure:"max_retained_sessions"`
	// DispatchIntervalMs is the dispatcher's safety tick in milliseconds (default: 5000)
	DispatchIntervalMs int `mapstructure:"dispatch_interval_ms"`
}

// QueueConfig controls the session queue
type QueueConfig struct {
	// MaxSize is the queue capacity (default: 100)
	MaxSize int `mapstructure:"max_size"`
	// MaxRetries is how often a session may be requeued for resources (default: 3)
	MaxRetries int `mapstructure:"max_retries"`
	// OptimizeIntervalSeconds is how often priorities are recalculated (default: 300)
	OptimizeIntervalSeconds int `mapstructure:"optimize_interval_seconds"`
	// PriorityWeights override the per-environment weights, in percent
	PriorityWeights map[string]float64 `mapstructure:"priority_weights"`
}

// PoolConfig controls the resource pool
type PoolConfig struct {
	// Limits is the total capacity per dimension. Zero dimensions fall back
	// to the detected defaults.
	Limits resource.Requirements `mapstructure:"limits"`
	// SampleIntervalSeconds is how often usage is sampled (default: 30)
	SampleIntervalSeconds int `mapstructure:"sample_interval_seconds"`
	// HistoryHours is how long samples are kept (default: 24)
	HistoryHours int `mapstructure:"history_hours"`
	// MaxSamples caps the number of retained samples (default: 2880)
	MaxSamples int `mapstructure:"max_samples"`
	// PressureThreshold is the utilization percent that raises a pressure warning (default: 90)
	PressureThreshold float64 `mapstructure:"pressure_threshold"`
}

// RunnerConfig controls the simulated suite runner
type RunnerConfig struct {
	// PassRate is the probability a synthetic test passes (default: 0.95)
	PassRate float64 `mapstructure:"pass_rate"`
	// TestDelayMs is how long each synthetic test takes (default: 50)
	TestDelayMs int `mapstructure:"test_delay_ms"`
	// MinTests and MaxTests bound the tests generated per suite (default: 5..15)
	MinTests int `mapstructure:"min_tests"`
	MaxTests int `mapstructure:"max_tests"`
	// Seed makes runs reproducible when non-zero
	Seed uint64 `mapstructure:"seed"`
}

// SuiteDefaults fill in fields a suite file leaves out
type SuiteDefaults struct {
	Environment              string                `mapstructure:"environment"`
	ConcurrencyLevel         int                   `mapstructure:"concurrency_level"`
	EstimatedDurationSeconds int                   `mapstructure:"estimated_duration_seconds"`
	Resources                resource.Requirements `mapstructure:"resources"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Format is the handler format: "json" or "text" (default: "json")
	Format string `mapstructure:"format"`
	// Dir is where suitepilot.log is written. Empty logs to stderr.
	Dir string `mapstructure:"dir"`
}

// ServerConfig controls the HTTP control surface
type ServerConfig struct {
	// Address is the listen address (default: ":8080")
	Address string `mapstructure:"address"`
	// Mode is the gin mode: "debug", "release" or "test" (default: "release")
	Mode string `mapstructure:"mode"`
	// Metrics exposes /metrics when true (default: true)
	Metrics bool `mapstructure:"metrics"`
	// ShutdownTimeoutSeconds bounds graceful shutdown (default: 10)
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxConcurrentSessions: 5,
			MaxRetainedSessions:   1000,
			DispatchIntervalMs:    5000,
		},
		Queue: QueueConfig{
			MaxSize:                 100,
			MaxRetries:              3,
			OptimizeIntervalSeconds: 300,
			PriorityWeights:         map[string]float64{},
		},
		Pool: PoolConfig{
			Limits:                resource.DefaultLimits(),
			SampleIntervalSeconds: 30,
			HistoryHours:          24,
			MaxSamples:            2880,
			PressureThreshold:     90,
		},
		Runner: RunnerConfig{
			PassRate:    0.95,
			TestDelayMs: 50,
			MinTests:    5,
			MaxTests:    15,
		},
		Suites: SuiteDefaults{
			Environment:              "development",
			ConcurrencyLevel:         1,
			EstimatedDurationSeconds: 60,
			Resources: resource.Requirements{
				MemoryMB:        128,
				CPUPercent:      10,
				NetworkMbps:     10,
				StorageMB:       100,
				ConcurrentUsers: 1,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Address:                ":8080",
			Mode:                   "release",
			Metrics:                true,
			ShutdownTimeoutSeconds: 10,
		},
	}
}

// DispatchInterval returns the dispatcher tick as a time.Duration
func (c *OrchestratorConfig) DispatchInterval() time.Duration {
	return time.Duration(c.DispatchIntervalMs) * time.Millisecond
}

// OptimizeInterval returns the optimizer period as a time.Duration
func (c *QueueConfig) OptimizeInterval() time.Duration {
	return time.Duration(c.OptimizeIntervalSeconds) * time.Second
}

// SampleInterval returns the sampling period as a time.Duration
func (c *PoolConfig) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSeconds) * time.Second
}

// HistoryWindow returns the sample retention window as a time.Duration
func (c *PoolConfig) HistoryWindow() time.Duration {
	return time.Duration(c.HistoryHours) * time.Hour
}

// EffectiveLimits returns Limits with zero dimensions replaced by the
// detected defaults
func (c *PoolConfig) EffectiveLimits() resource.Requirements {
	d := resource.DefaultLimits()
	l := c.Limits
	if l.MemoryMB == 0 {
		l.MemoryMB = d.MemoryMB
	}
	if l.CPUPercent == 0 {
		l.CPUPercent = d.CPUPercent
	}
	if l.NetworkMbps == 0 {
		l.NetworkMbps = d.NetworkMbps
	}
	if l.StorageMB == 0 {
		l.StorageMB = d.StorageMB
	}
	if l.ConcurrentUsers == 0 {
		l.ConcurrentUsers = d.ConcurrentUsers
	}
	return l
}

// TestDelay returns the per-test delay as a time.Duration
func (c *RunnerConfig) TestDelay() time.Duration {
	return time.Duration(c.TestDelayMs) * time.Millisecond
}

// ShutdownTimeout returns the graceful shutdown bound as a time.Duration
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Orchestrator defaults
	viper.SetDefault("orchestrator.max_concurrent_sessions", defaults.Orchestrator.MaxConcurrentSessions)
	viper.SetDefault("orchestrator.max_retained_sessions", defaults.Orchestrator.MaxRetainedSessions)
	viper.SetDefault("orchestrator.dispatch_interval_ms", defaults.Orchestrator.DispatchIntervalMs)

	// Queue defaults
	viper.SetDefault("queue.max_size", defaults.Queue.MaxSize)
	viper.SetDefault("queue.max_retries", defaults.Queue.MaxRetries)
	viper.SetDefault("queue.optimize_interval_seconds", defaults.Queue.OptimizeIntervalSeconds)
	viper.SetDefault("queue.priority_weights", defaults.Queue.PriorityWeights)

	// Pool defaults
	viper.SetDefault("pool.limits.memory_mb", defaults.Pool.Limits.MemoryMB)
	viper.SetDefault("pool.limits.cpu_percent", defaults.Pool.Limits.CPUPercent)
	viper.SetDefault("pool.limits.network_mbps", defaults.Pool.Limits.NetworkMbps)
	viper.SetDefault("pool.limits.storage_mb", defaults.Pool.Limits.StorageMB)
	viper.SetDefault("pool.limits.concurrent_users", defaults.Pool.Limits.ConcurrentUsers)
	viper.SetDefault("pool.sample_interval_seconds", defaults.Pool.SampleIntervalSeconds)
	viper.SetDefault("pool.history_hours", defaults.Pool.HistoryHours)
	viper.SetDefault("pool.max_samples", defaults.Pool.MaxSamples)
	viper.SetDefault("pool.pressure_threshold", defaults.Pool.PressureThreshold)

	// Runner defaults
	viper.SetDefault("runner.pass_rate", defaults.Runner.PassRate)
	viper.SetDefault("runner.test_delay_ms", defaults.Runner.TestDelayMs)
	viper.SetDefault("runner.min_tests", defaults.Runner.MinTests)
	viper.SetDefault("runner.max_tests", defaults.Runner.MaxTests)
	viper.SetDefault("runner.seed", defaults.Runner.Seed)

	// Suite file defaults
	viper.SetDefault("suites.environment", defaults.Suites.Environment)
	viper.SetDefault("suites.concurrency_level", defaults.Suites.ConcurrencyLevel)
	viper.SetDefault("suites.estimated_duration_seconds", defaults.Suites.EstimatedDurationSeconds)
	viper.SetDefault("suites.resources.memory_mb", defaults.Suites.Resources.MemoryMB)
	viper.SetDefault("suites.resources.cpu_percent", defaults.Suites.Resources.CPUPercent)
	viper.SetDefault("suites.resources.network_mbps", defaults.Suites.Resources.NetworkMbps)
	viper.SetDefault("suites.resources.storage_mb", defaults.Suites.Resources.StorageMB)
	viper.SetDefault("suites.resources.concurrent_users", defaults.Suites.Resources.ConcurrentUsers)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Server defaults
	viper.SetDefault("server.address", defaults.Server.Address)
	viper.SetDefault("server.mode", defaults.Server.Mode)
	viper.SetDefault("server.metrics", defaults.Server.Metrics)
	viper.SetDefault("server.shutdown_timeout_seconds", defaults.Server.ShutdownTimeoutSeconds)
}

// Load reads the configuration from viper
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

// Get returns the current configuration, falling back to defaults
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling or validation fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "suitepilot")
	}
	// Fall back to ~/.config/suitepilot
	home, err := os.UserHomeDir()
	if err != nil {
		return ".suitepilot"
	}
	return filepath.Join(home, ".config", "suitepilot")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
