package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/suitepilot/suitepilot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View suitepilot configuration",
	Long: `View suitepilot configuration.

Without arguments, displays the effective configuration.
Use subcommands to create a config file or locate it.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/suitepilot/config.yaml with all available options.`,
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
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}
	if _, err := config.Load(); err != nil {
		fmt.Fprintf(out, "# Warning: %v\n", err)
	}

	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/suitepilot/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: SUITEPILOT_* (e.g., SUITEPILOT_QUEUE_MAX_SIZE)")
	return nil
}

const defaultConfigFile = `# Suitepilot Configuration

orchestrator:
  # Sessions allowed to execute at the same time
  max_concurrent_sessions: 5
  # Finished sessions kept in memory before the oldest are evicted
  max_retained_sessions: 1000
  # Safety tick for the dispatcher in milliseconds
  dispatch_interval_ms: 5000

queue:
  max_size: 100
  # Times a session may be requeued while waiting for resources
  max_retries: 3
  # How often waiting sessions are re-prioritized
  optimize_interval_seconds: 300
  # Per-environment weights (production 100, staging 80, development 60,
  # test 60, urgent 200); entries here override those
  priority_weights: {}

pool:
  # Total capacity; 0 uses the detected default for that dimension
  limits:
    memory_mb: 0
    cpu_percent: 0
    network_mbps: 0
    storage_mb: 0
    concurrent_users: 0
  sample_interval_seconds: 30
  history_hours: 24
  max_samples: 2880
  # Utilization percent that raises a pressure warning
  pressure_threshold: 90

runner:
  # Simulated runner: probability a test passes, delay per test, tests per suite
  pass_rate: 0.95
  test_delay_ms: 50
  min_tests: 5
  max_tests: 15
  seed: 0

# Applied to suite files that leave these out
suites:
  environment: development
  concurrency_level: 1
  estimated_duration_seconds: 60
  resources:
    memory_mb: 128
    cpu_percent: 10
    network_mbps: 10
    storage_mb: 100
    concurrent_users: 1

logging:
  # debug, info, warn, error
  level: info
  # json or text
  format: json
  # Directory for suitepilot.log; empty logs to stderr with --verbose
  dir: ""

server:
  address: ":8080"
  mode: release
  metrics: true
  shutdown_timeout_seconds: 10
`
