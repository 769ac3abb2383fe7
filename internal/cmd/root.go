package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/suitepilot/suitepilot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "suitepilot",
	Short: "Dependency-aware test suite orchestrator",
	Long: `Suitepilot plans test suites into dependency-ordered phases, queues
sessions by priority, admits them against a shared resource pool, and runs
each phase's suites in parallel under a concurrency limit.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/suitepilot/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log to stderr when no log directory is configured")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/suitepilot")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SUITEPILOT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SUITEPILOT_QUEUE_MAX_SIZE for queue.max_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
