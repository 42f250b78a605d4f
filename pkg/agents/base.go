// Package agents provides the base agent implementation, the builtin
// rule-based agent set, and the Azure OpenAI backed agent.
package agents

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

// BaseAgent carries the identity, capability set, and message history shared
// by every agent. Concrete agents embed it and implement ProcessMessage and
// HandleTask.
type BaseAgent struct {
	name         string
	description  string
	capabilities []agent.Capability
	handledTypes map[task.Type]struct{}
	logger       zerolog.Logger

	mu          sync.Mutex
	initialized bool
	history     []agent.Message
}

// NewBaseAgent creates the shared agent core
func NewBaseAgent(name, description string, capabilities []agent.Capability, handledTypes []task.Type, logger zerolog.Logger) *BaseAgent {
	handled := make(map[task.Type]struct{}, len(handledTypes))
	for _, t := range handledTypes {
		handled[t] = struct{}{}
	}
	return &BaseAgent{
		name:         name,
		description:  description,
		capabilities: capabilities,
		handledTypes: handled,
		logger:       logger.With().Str("agent", name).Logger(),
	}
}

func (b *BaseAgent) Name() string        { return b.name }
func (b *BaseAgent) Description() string { return b.description }

func (b *BaseAgent) Capabilities() []agent.Capability {
	return append([]agent.Capability(nil), b.capabilities...)
}

// CanHandle reports whether the agent accepts the task type
func (b *BaseAgent) CanHandle(taskType task.Type) bool {
	_, ok := b.handledTypes[taskType]
	return ok
}

// Initialize marks the agent ready
func (b *BaseAgent) Initialize(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = true
	return nil
}

// Shutdown marks the agent stopped
func (b *BaseAgent) Shutdown(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = false
	return nil
}

// IsInitialized reports whether Initialize has run
func (b *BaseAgent) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// RecordMessage appends to the agent's message history
func (b *BaseAgent) RecordMessage(msg agent.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, msg)
}

// MessageHistory returns a copy of the received messages
func (b *BaseAgent) MessageHistory() []agent.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]agent.Message(nil), b.history...)
}

// Respond builds a successful response carrying the message correlation id
func (b *BaseAgent) Respond(msg agent.Message, content string) (agent.Response, error) {
	return agent.Response{
		AgentName: b.name,
		Content:   content,
		Success:   true,
		Metadata:  map[string]any{"message_id": msg.CorrelationID},
		Timestamp: time.Now(),
	}, nil
}

// TaskResponse builds a response for a handled task
func (b *BaseAgent) TaskResponse(content string, success bool, artifacts []task.Artifact) agent.Response {
	return agent.Response{
		AgentName: b.name,
		Content:   content,
		Success:   success,
		Artifacts: artifacts,
		Metadata:  make(map[string]any),
		Timestamp: time.Now(),
	}
}
