package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/suitepilot/suitepilot/internal/resource"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default orchestrator config
	if cfg.Orchestrator.MaxConcurrentSessions != 5 {
		t.Errorf("Orchestrator.MaxConcurrentSessions = %d, want 5", cfg.Orchestrator.MaxConcurrentSessions)
	}
	if cfg.Orchestrator.MaxRetainedSessions != 1000 {
		t.Errorf("Orchestrator.MaxRetainedSessions = %d, want 1000", cfg.Orchestrator.MaxRetainedSessions)
	}

	// Verify default queue config
	if cfg.Queue.MaxSize != 100 {
		t.Errorf("Queue.MaxSize = %d, want 100", cfg.Queue.MaxSize)
	}
	if cfg.Queue.MaxRetries != 3 {
		t.Errorf("Queue.MaxRetries = %d, want 3", cfg.Queue.MaxRetries)
	}

	// Verify default pool config
	if cfg.Pool.Limits != resource.DefaultLimits() {
		t.Errorf("Pool.Limits = %+v, want detected defaults", cfg.Pool.Limits)
	}
	if cfg.Pool.PressureThreshold != 90 {
		t.Errorf("Pool.PressureThreshold = %v, want 90", cfg.Pool.PressureThreshold)
	}

	// Verify default logging and server config
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %q, want %q", cfg.Server.Address, ":8080")
	}
	if !cfg.Server.Metrics {
		t.Error("Server.Metrics should be true by default")
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"dispatch interval", cfg.Orchestrator.DispatchInterval(), 5 * time.Second},
		{"optimize interval", cfg.Queue.OptimizeInterval(), 5 * time.Minute},
		{"sample interval", cfg.Pool.SampleInterval(), 30 * time.Second},
		{"history window", cfg.Pool.HistoryWindow(), 24 * time.Hour},
		{"test delay", cfg.Runner.TestDelay(), 50 * time.Millisecond},
		{"shutdown timeout", cfg.Server.ShutdownTimeout(), 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestPoolConfig_EffectiveLimits(t *testing.T) {
	cfg := Default()
	cfg.Pool.Limits = resource.Requirements{MemoryMB: 512}

	got := cfg.Pool.EffectiveLimits()
	want := resource.DefaultLimits()
	want.MemoryMB = 512

	if got != want {
		t.Errorf("EffectiveLimits() = %+v, want %+v", got, want)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/suitepilot"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		// Should be based on home directory
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "suitepilot")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/suitepilot/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Queue.MaxSize != 100 {
		t.Errorf("Get().Queue.MaxSize = %d, want 100", cfg.Queue.MaxSize)
	}
	if cfg.Suites.Resources.MemoryMB != 128 {
		t.Errorf("Get().Suites.Resources.MemoryMB = %v, want 128", cfg.Suites.Resources.MemoryMB)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
orchestrator:
  max_concurrent_sessions: 2
queue:
  priority_weights:
    production: 150
pool:
  limits:
    memory_mb: 4096
    concurrent_users: 20
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Orchestrator.MaxConcurrentSessions != 2 {
		t.Errorf("MaxConcurrentSessions = %d, want 2", cfg.Orchestrator.MaxConcurrentSessions)
	}
	if cfg.Queue.PriorityWeights["production"] != 150 {
		t.Errorf("PriorityWeights = %v, want production=150", cfg.Queue.PriorityWeights)
	}
	if cfg.Pool.Limits.MemoryMB != 4096 || cfg.Pool.Limits.ConcurrentUsers != 20 {
		t.Errorf("Pool.Limits = %+v", cfg.Pool.Limits)
	}
	// Untouched keys keep their defaults
	if cfg.Queue.MaxSize != 100 {
		t.Errorf("Queue.MaxSize = %d, want 100", cfg.Queue.MaxSize)
	}
}

func TestLoad_Invalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("queue.max_size", 0)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for queue.max_size = 0")
	}
	if _, ok := err.(ValidationErrors); !ok {
		t.Errorf("Load() error type = %T, want ValidationErrors", err)
	}
}
