package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/suitepilot/suitepilot/internal/config"
	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/loader"
	"github.com/suitepilot/suitepilot/internal/logging"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/orchestrator"
	"github.com/suitepilot/suitepilot/internal/queue"
	"github.com/suitepilot/suitepilot/internal/resource"
	"github.com/suitepilot/suitepilot/internal/runner"
)

// app bundles the collaborators built from the loaded configuration.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	loader *loader.Loader
}

// newApp loads the configuration and builds the logger and loader shared by
// every command.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	l, err := loader.New(loader.WithDefaults(loaderDefaults(cfg)))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, loader: l}, nil
}

func (a *app) close() {
	_ = a.logger.Close()
}

// newLogger writes to the configured log directory. Without one, logs go
// to stderr only when --verbose is set.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	if cfg.Logging.Dir != "" {
		logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		return logger, nil
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return logging.NewLoggerWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format), nil
	}
	return logging.NopLogger(), nil
}

func loaderDefaults(cfg *config.Config) loader.Defaults {
	return loader.Defaults{
		Environment:       cfg.Suites.Environment,
		ConcurrencyLevel:  cfg.Suites.ConcurrencyLevel,
		EstimatedDuration: time.Duration(cfg.Suites.EstimatedDurationSeconds) * time.Second,
		Resources:         cfg.Suites.Resources,
	}
}

// loadConfigurations reads every configuration from paths.
func (a *app) loadConfigurations(paths []string) ([]model.TestConfiguration, error) {
	cfgs, err := a.loader.LoadFiles(paths...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loaded configurations", "files", len(paths), "configurations", len(cfgs))
	return cfgs, nil
}

// newOrchestrator wires a queue, pool and runner from the configuration
// onto bus. It is not started.
func (a *app) newOrchestrator(bus *event.Bus, extra ...orchestrator.Option) *orchestrator.Orchestrator {
	cfg := a.cfg

	q := queue.New(
		queue.WithMaxSize(cfg.Queue.MaxSize),
		queue.WithMaxRetries(cfg.Queue.MaxRetries),
		queue.WithPriorityWeights(cfg.Queue.PriorityWeights),
		queue.WithOptimizeInterval(cfg.Queue.OptimizeInterval()),
		queue.WithBus(bus),
		queue.WithLogger(a.logger),
	)

	pool := resource.NewPool(
		resource.WithLimits(cfg.Pool.EffectiveLimits()),
		resource.WithSampleInterval(cfg.Pool.SampleInterval()),
		resource.WithHistoryWindow(cfg.Pool.HistoryWindow()),
		resource.WithMaxSamples(cfg.Pool.MaxSamples),
		resource.WithPressureThreshold(cfg.Pool.PressureThreshold),
		resource.WithBus(bus),
		resource.WithLogger(a.logger),
	)

	runnerOpts := []runner.SimulatedOption{
		runner.WithPassRate(cfg.Runner.PassRate),
		runner.WithTestDelay(cfg.Runner.TestDelay()),
		runner.WithTestCount(cfg.Runner.MinTests, cfg.Runner.MaxTests),
	}
	if cfg.Runner.Seed != 0 {
		runnerOpts = append(runnerOpts, runner.WithSeed(cfg.Runner.Seed))
	}

	opts := []orchestrator.Option{
		orchestrator.WithBus(bus),
		orchestrator.WithLogger(a.logger),
		orchestrator.WithQueue(q),
		orchestrator.WithPool(pool),
		orchestrator.WithRunner(runner.NewSimulated(runnerOpts...)),
		orchestrator.WithMaxConcurrentSessions(cfg.Orchestrator.MaxConcurrentSessions),
		orchestrator.WithMaxRetainedSessions(cfg.Orchestrator.MaxRetainedSessions),
		orchestrator.WithDispatchInterval(cfg.Orchestrator.DispatchInterval()),
	}
	return orchestrator.New(append(opts, extra...)...)
}
