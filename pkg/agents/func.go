package agents

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

// FuncAgent adapts plain functions into an agent. Nil callbacks fall back
// to echo behavior.
type FuncAgent struct {
	*BaseAgent
	OnMessage func(ctx context.Context, msg agent.Message) (agent.Response, error)
	OnTask    func(ctx context.Context, t *task.Task) (agent.Response, error)
}

// NewFuncAgent creates a callback-backed agent
func NewFuncAgent(name string, capabilities []agent.Capability, handledTypes []task.Type, logger zerolog.Logger) *FuncAgent {
	return &FuncAgent{BaseAgent: NewBaseAgent(
		name,
		"Callback-backed agent",
		capabilities,
		handledTypes,
		logger,
	)}
}

func (a *FuncAgent) ProcessMessage(ctx context.Context, msg agent.Message) (agent.Response, error) {
	a.RecordMessage(msg)
	if a.OnMessage != nil {
		return a.OnMessage(ctx, msg)
	}
	return a.Respond(msg, msg.Content)
}

func (a *FuncAgent) HandleTask(ctx context.Context, t *task.Task) (agent.Response, error) {
	if a.OnTask != nil {
		return a.OnTask(ctx, t)
	}
	return a.TaskResponse("Processed task: "+t.Title, true, nil), nil
}
