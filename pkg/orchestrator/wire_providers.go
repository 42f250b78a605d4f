// Package orchestrator provides Wire providers for the coordination layer.
package orchestrator

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/conversation"
	"github.com/clockwork-labs/orchestrator/pkg/domain/correction"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
	"github.com/clockwork-labs/orchestrator/pkg/domain/workflow"
	"github.com/clockwork-labs/orchestrator/pkg/service/config"
)

// ProvideConfig adapts service configuration into orchestrator settings
func ProvideConfig(cfg *config.Config) Config {
	return Config{
		Name:                    cfg.Name,
		MaxConcurrentTasks:      cfg.MaxConcurrentTasks,
		MaxConversationTurns:    conversation.DefaultMaxTurns,
		EnableCorrectionLoops:   true,
		CorrectionMaxIterations: cfg.MaxCorrections,
	}
}

// ProvideQueue creates the shared task queue
func ProvideQueue() *task.Queue {
	return task.NewQueue()
}

// ProvideRegistry creates the agent registry
func ProvideRegistry(logger zerolog.Logger) *agent.Registry {
	return agent.NewRegistry(logger)
}

// ProvideConversationManager creates the conversation manager over the registry
func ProvideConversationManager(registry *agent.Registry, logger zerolog.Logger) *conversation.Manager {
	return conversation.NewManager(registry, logger)
}

// ProvideCorrectionLoop creates the default correction loop
func ProvideCorrectionLoop(logger zerolog.Logger) *correction.Loop {
	return correction.NewDefaultLoop(logger)
}

// ProvideEngine creates the workflow engine wired to conversations and metrics
func ProvideEngine(conversations *conversation.Manager, metrics workflow.MetricsCollector, logger zerolog.Logger) *workflow.Engine {
	return workflow.NewEngine(logger,
		workflow.WithConversationManager(conversations),
		workflow.WithMetrics(metrics),
	)
}

// ProvideOrchestrator assembles the facade with task metrics attached
func ProvideOrchestrator(
	cfg Config,
	registry *agent.Registry,
	queue *task.Queue,
	conversations *conversation.Manager,
	corrections *correction.Loop,
	engine *workflow.Engine,
	metrics TaskMetrics,
	logger zerolog.Logger,
) *Orchestrator {
	return New(cfg, registry, queue, conversations, corrections, engine, logger,
		WithTaskMetrics(metrics))
}

// Providers wires the full coordination layer
var Providers = wire.NewSet(
	ProvideConfig,
	ProvideQueue,
	ProvideRegistry,
	ProvideConversationManager,
	ProvideCorrectionLoop,
	ProvideEngine,
	ProvideOrchestrator,
)
