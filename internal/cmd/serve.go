package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/suitepilot/suitepilot/internal/config"
	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/metrics"
	"github.com/suitepilot/suitepilot/internal/resource"
	"github.com/suitepilot/suitepilot/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the orchestrator over HTTP",
	Long: `Start a long-running orchestrator and expose it over HTTP.

Routes:
  GET  /healthz                     liveness
  GET  /readyz                      readiness (queue health)
  GET  /metrics                     Prometheus metrics (server.metrics)
  POST /api/v1/plans                plan a suite file body without running it
  GET  /api/v1/sessions             list sessions (?status=running)
  POST /api/v1/sessions             start a session from a suite file body
  GET  /api/v1/sessions/:id         get one session
  POST /api/v1/sessions/:id/stop    cancel a running session
  POST /api/v1/sessions/:id/cancel  withdraw a queued session
  GET  /api/v1/queue                queue health and metrics
  GET  /api/v1/resources            pool utilization and allocations
  GET  /api/v1/resources/prediction expected fit after ?horizon= (memory_mb=...)
  PUT  /api/v1/resources/limits     change pool limits (JSON, zero keeps)

Editing pool.limits in the config file while serving applies the new
limits; a change below current usage is rejected and logged.

Examples:
  suitepilot serve
  suitepilot serve --address 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("address", "", "Listen address (overrides server.address)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.Server.Address
	if flagAddr, _ := cmd.Flags().GetString("address"); flagAddr != "" {
		addr = flagAddr
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := event.NewBus(event.WithLogger(a.logger))
	orch := a.newOrchestrator(bus)

	if file := viper.ConfigFileUsed(); file != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			if err := reloadPoolLimits(orch.Pool()); err != nil {
				a.logger.Warn("config change not applied", "file", e.Name, "error", err)
				return
			}
			a.logger.Info("pool limits reloaded", "file", e.Name, "limits", orch.Pool().Limits().Map())
		})
		viper.WatchConfig()
	}

	opts := []server.Option{
		server.WithAddress(addr),
		server.WithMode(a.cfg.Server.Mode),
		server.WithLoader(a.loader),
		server.WithLogger(a.logger),
		server.WithShutdownTimeout(a.cfg.Server.ShutdownTimeout()),
	}
	if a.cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector := metrics.New(reg)
		collector.Attach(bus)
		defer collector.Detach()
		opts = append(opts, server.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	srv, err := server.New(orch, opts...)
	if err != nil {
		return err
	}

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "suitepilot listening on %s\n", addr)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// reloadPoolLimits applies pool.limits from the current configuration.
func reloadPoolLimits(pool *resource.Pool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return pool.UpdateLimits(cfg.Pool.EffectiveLimits())
}
