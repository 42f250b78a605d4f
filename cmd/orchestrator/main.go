package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clockwork-labs/orchestrator/pkg/agents"
	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/conversation"
	"github.com/clockwork-labs/orchestrator/pkg/domain/correction"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
	"github.com/clockwork-labs/orchestrator/pkg/domain/workflow"
	"github.com/clockwork-labs/orchestrator/pkg/infrastructure/observability"
	"github.com/clockwork-labs/orchestrator/pkg/infrastructure/transport"
	"github.com/clockwork-labs/orchestrator/pkg/orchestrator"
	"github.com/clockwork-labs/orchestrator/pkg/service/config"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type flagConfig struct {
	envFile  *string
	logLevel *string
	httpAddr *string
	serveAPI *bool
	version  *bool
}

func parseFlags() *flagConfig {
	flags := &flagConfig{
		envFile:  flag.String("env-file", "", "Path to a .env file"),
		logLevel: flag.String("log-level", "", "Log level (trace, debug, info, warn, error)"),
		httpAddr: flag.String("http-addr", "", "HTTP API listen address"),
		serveAPI: flag.Bool("api", false, "Serve the HTTP API"),
		version:  flag.Bool("version", false, "Show version information"),
	}
	flag.Parse()
	return flags
}

func main() {
	flags := parseFlags()
	if *flags.version {
		fmt.Printf("orchestrator %s (%s)\n", Version, GitCommit)
		return
	}

	if err := run(flags); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(flags *flagConfig) error {
	cfg, err := config.Load(*flags.envFile)
	if err != nil {
		return err
	}
	if *flags.logLevel != "" {
		cfg.LogLevel = *flags.logLevel
	}
	if *flags.httpAddr != "" {
		cfg.APIListenAddr = *flags.httpAddr
	}
	if *flags.serveAPI {
		cfg.EnableAPIAdapter = true
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.Debug)
	logger.Info().
		Str("version", Version).
		Str("environment", string(cfg.Environment)).
		Msg("starting orchestrator")

	metrics := observability.NewMetrics()

	registry := agent.NewRegistry(logger)
	queue := task.NewQueue()
	conversations := conversation.NewManager(registry, logger)
	corrections := correction.NewDefaultLoop(logger)
	engine := workflow.NewEngine(logger,
		workflow.WithConversationManager(conversations),
		workflow.WithMetrics(metrics),
	)

	orch := orchestrator.New(
		orchestrator.ProvideConfig(cfg),
		registry, queue, conversations, corrections, engine, logger,
		orchestrator.WithTaskMetrics(metrics),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, a := range agents.DefaultAgents(logger) {
		if err := orch.RegisterAgent(ctx, a); err != nil {
			return err
		}
	}

	if err := orch.Start(ctx); err != nil {
		return err
	}

	coordinator := orchestrator.NewRetryCoordinator(queue, orchestrator.DefaultRetryInterval,
		func(ctx context.Context, t *task.Task) {
			result, err := orch.ProcessTask(ctx, t)
			orch.SettleTask(t, result, err)
		}, logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- coordinator.Run(ctx)
	}()

	if cfg.EnableAPIAdapter {
		api := transport.NewAPIServer(orch, transport.APIServerConfig{
			ListenAddr:     cfg.APIListenAddr,
			MetricsHandler: metrics.Handler(),
		}, logger)
		go func() {
			errCh <- api.Serve(ctx)
		}()
	}

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")

	shutdownCtx := context.Background()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
