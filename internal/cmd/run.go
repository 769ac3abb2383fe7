package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/orchestrator"
	"github.com/suitepilot/suitepilot/internal/render"
)

var runCmd = &cobra.Command{
	Use:   "run <suite-file>...",
	Short: "Run every configuration in the given suite files",
	Long: `Run every configuration in the given suite files and wait for all
sessions to finish. Sessions share one queue and resource pool, so they are
admitted by priority as capacity allows.

Suites are executed by the built-in simulated runner; tune it under the
runner section of the config file.

Interrupting (Ctrl-C) stops the orchestrator: running sessions are
cancelled and queued ones are left unstarted.

The exit code is 0 only when every session completes.

Examples:
  suitepilot run suites/checkout.yaml
  suitepilot run --timeout 10m --json suites/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("json", false, "Output final sessions as JSON")
	runCmd.Flags().Duration("timeout", 0, "Stop waiting after this long (0 waits indefinitely)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	cfgs, err := a.loadConfigurations(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bus := event.NewBus(event.WithLogger(a.logger))
	orch := a.newOrchestrator(bus)

	settled := make(chan struct{}, 1)
	notify := func(event.Event) {
		select {
		case settled <- struct{}{}:
		default:
		}
	}
	for _, t := range []string{event.TypeSessionCompleted, event.TypeSessionFailed, event.TypeSessionCancelled} {
		id := bus.Subscribe(t, notify)
		defer bus.Unsubscribe(id)
	}

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	ids := make([]string, 0, len(cfgs))
	for _, cfg := range cfgs {
		sess, err := orch.StartTestSession(ctx, cfg)
		if sess == nil {
			return fmt.Errorf("configuration %s: %w", cfg.ID, err)
		}
		if err != nil {
			a.logger.Warn("session rejected", "configuration_id", cfg.ID, "error", err)
		}
		ids = append(ids, sess.ID)
	}

	waitForSessions(ctx, orch, ids, settled)
	if ctx.Err() != nil {
		a.logger.Warn("run interrupted", "reason", context.Cause(ctx))
		orch.Stop()
	}

	sessions := make([]*model.TestSession, 0, len(ids))
	for _, id := range ids {
		if sess, err := orch.GetSession(id); err == nil {
			sessions = append(sessions, sess)
		}
	}
	if err := printSessions(cmd, sessions); err != nil {
		return err
	}

	incomplete := 0
	for _, s := range sessions {
		if s.Status != model.SessionCompleted {
			incomplete++
		}
	}
	if incomplete > 0 {
		return fmt.Errorf("%d of %d sessions did not complete", incomplete, len(ids))
	}
	return nil
}

// waitForSessions blocks until every session is terminal or ctx is done.
func waitForSessions(ctx context.Context, orch *orchestrator.Orchestrator, ids []string, settled <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for !allTerminal(orch, ids) {
		select {
		case <-ctx.Done():
			return
		case <-settled:
		case <-ticker.C:
		}
	}
}

func allTerminal(orch *orchestrator.Orchestrator, ids []string) bool {
	for _, id := range ids {
		sess, err := orch.GetSession(id)
		if err != nil {
			continue
		}
		if !sess.Status.IsTerminal() {
			return false
		}
	}
	return true
}

func printSessions(cmd *cobra.Command, sessions []*model.TestSession) error {
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}
	r := render.New(out)
	for i, s := range sessions {
		if i > 0 {
			fmt.Fprintln(out)
		}
		r.Session(s)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
