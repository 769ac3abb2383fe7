package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/render"
	"github.com/suitepilot/suitepilot/internal/resolver"
)

var planCmd = &cobra.Command{
	Use:   "plan <suite-file>...",
	Short: "Show the execution plan for suite files",
	Long: `Show how each configuration would be executed: its phases, the suites
in each phase, estimated durations, peak resource needs, the critical path
and a risk assessment. Nothing is run.

Examples:
  suitepilot plan suites/checkout.yaml
  suitepilot plan --json suites/checkout.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().Bool("json", false, "Output plans as JSON")
	rootCmd.AddCommand(planCmd)
}

// PlanOutput pairs a configuration id with its plan in JSON output.
type PlanOutput struct {
	ConfigurationID string               `json:"configuration_id"`
	Plan            *model.ExecutionPlan `json:"plan"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	cfgs, err := a.loadConfigurations(args)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	r := render.New(cmd.OutOrStdout())
	var plans []PlanOutput
	for i, cfg := range cfgs {
		plan, _, err := resolver.BuildPlan("", cfg)
		if err != nil {
			return fmt.Errorf("configuration %s: %w", cfg.ID, err)
		}
		if asJSON {
			plans = append(plans, PlanOutput{ConfigurationID: cfg.ID, Plan: plan})
			continue
		}
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		r.Plan(cfg, plan)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(plans)
	}
	return nil
}
