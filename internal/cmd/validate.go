package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suitepilot/suitepilot/internal/resolver"
)

var validateCmd = &cobra.Command{
	Use:   "validate <suite-file>...",
	Short: "Validate suite files",
	Long: `Validate suite files without running anything.

This command checks:
  - YAML or JSON syntax
  - The suite file schema (required fields, types, unknown keys)
  - Configuration values (concurrency, resources, durations)
  - Dependency validity (no cycles, no missing or duplicate suites)

The exit code indicates the result:
  0 - Every configuration is valid
  1 - At least one file or configuration is invalid

Examples:
  suitepilot validate suites/checkout.yaml
  suitepilot validate --json suites/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("json", false, "Output validation results as JSON")
	rootCmd.AddCommand(validateCmd)
}

// ValidationResult is the outcome for one file, or one configuration
// within a file.
type ValidationResult struct {
	File            string `json:"file"`
	ConfigurationID string `json:"configuration_id,omitempty"`
	Valid           bool   `json:"valid"`
	Suites          int    `json:"suites,omitempty"`
	Phases          int    `json:"phases,omitempty"`
	Error           string `json:"error,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	var results []ValidationResult
	for _, path := range args {
		cfgs, err := a.loader.LoadFile(path)
		if err != nil {
			results = append(results, ValidationResult{File: path, Error: err.Error()})
			continue
		}
		for _, cfg := range cfgs {
			res := ValidationResult{File: path, ConfigurationID: cfg.ID, Suites: len(cfg.TestSuites)}
			plan, _, err := resolver.BuildPlan("", cfg)
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Valid = true
				res.Phases = len(plan.Phases)
			}
			results = append(results, res)
		}
	}

	invalid := 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			switch {
			case r.Valid:
				fmt.Fprintf(out, "ok    %s: %s (%d suites, %d phases)\n", r.File, r.ConfigurationID, r.Suites, r.Phases)
			case r.ConfigurationID != "":
				fmt.Fprintf(out, "FAIL  %s: %s: %s\n", r.File, r.ConfigurationID, r.Error)
			default:
				fmt.Fprintf(out, "FAIL  %s: %s\n", r.File, r.Error)
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d checks failed", invalid, len(results))
	}
	return nil
}
