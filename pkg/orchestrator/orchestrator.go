// Package orchestrator composes the task queue, agent registry, correction
// loop, conversation manager, and workflow engine into one coordination
// surface.
package orchestrator

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/conversation"
	"github.com/clockwork-labs/orchestrator/pkg/domain/correction"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
	"github.com/clockwork-labs/orchestrator/pkg/domain/workflow"
)

// Config tunes the orchestrator facade
type Config struct {
	Name                    string
	MaxConcurrentTasks      int
	MaxConversationTurns    int
	EnableCorrectionLoops   bool
	CorrectionMaxIterations int
}

// DefaultConfig returns the standard orchestrator settings
func DefaultConfig() Config {
	return Config{
		Name:                    "MetaOrchestrator",
		MaxConcurrentTasks:      5,
		MaxConversationTurns:    conversation.DefaultMaxTurns,
		EnableCorrectionLoops:   true,
		CorrectionMaxIterations: 3,
	}
}

// TaskMetrics receives task lifecycle counters. The observability package
// provides a Prometheus-backed implementation.
type TaskMetrics interface {
	TaskSubmitted()
	TaskProcessed(status string)
	TaskRetryScheduled()
}

type nopTaskMetrics struct{}

func (nopTaskMetrics) TaskSubmitted()       {}
func (nopTaskMetrics) TaskProcessed(string) {}
func (nopTaskMetrics) TaskRetryScheduled()  {}

// Option configures optional orchestrator collaborators
type Option func(*Orchestrator)

// WithTaskMetrics attaches a task lifecycle metrics collector
func WithTaskMetrics(m TaskMetrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// StatusSnapshot is a point-in-time view of the orchestrator
type StatusSnapshot struct {
	Name                string   `json:"name"`
	Running             bool     `json:"is_running"`
	AgentCount          int      `json:"agents_count"`
	Agents              []string `json:"agents"`
	PendingTasks        int      `json:"pending_tasks"`
	ActiveConversations int      `json:"active_conversations"`
}

// Orchestrator routes submitted tasks to capable agents, escalates flagged
// outputs through the correction loop, and exposes conversations and
// workflow execution.
type Orchestrator struct {
	config        Config
	registry      *agent.Registry
	queue         *task.Queue
	conversations *conversation.Manager
	dispatcher    *Dispatcher
	engine        *workflow.Engine
	metrics       TaskMetrics
	logger        zerolog.Logger

	mu      sync.Mutex
	running bool
}

// New creates an orchestrator from its collaborators
func New(
	cfg Config,
	registry *agent.Registry,
	queue *task.Queue,
	conversations *conversation.Manager,
	corrections *correction.Loop,
	engine *workflow.Engine,
	logger zerolog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		config:        cfg,
		registry:      registry,
		queue:         queue,
		conversations: conversations,
		engine:        engine,
		metrics:       nopTaskMetrics{},
		logger:        logger.With().Str("component", "orchestrator").Logger(),
	}
	o.dispatcher = NewDispatcher(registry, corrections, cfg.EnableCorrectionLoops, logger)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the orchestrator configuration
func (o *Orchestrator) Config() Config { return o.config }

// Registry returns the agent registry
func (o *Orchestrator) Registry() *agent.Registry { return o.registry }

// Queue returns the task queue
func (o *Orchestrator) Queue() *task.Queue { return o.queue }

// Conversations returns the conversation manager
func (o *Orchestrator) Conversations() *conversation.Manager { return o.conversations }

// Engine returns the workflow engine
func (o *Orchestrator) Engine() *workflow.Engine { return o.engine }

// IsRunning reports whether the task loop accepts work
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) setRunning(v bool) {
	o.mu.Lock()
	o.running = v
	o.mu.Unlock()
}

// RegisterAgent adds an agent to the registry and the workflow engine
func (o *Orchestrator) RegisterAgent(ctx context.Context, a agent.Agent) error {
	if err := o.registry.Register(ctx, a); err != nil {
		return err
	}
	o.engine.RegisterAgent(a)
	return nil
}

// UnregisterAgent removes an agent from the registry
func (o *Orchestrator) UnregisterAgent(ctx context.Context, name string) error {
	return o.registry.Unregister(ctx, name)
}

// SubmitTask adds the task to the queue and returns its id
func (o *Orchestrator) SubmitTask(t *task.Task) (string, error) {
	if err := o.queue.Add(t); err != nil {
		return "", err
	}
	o.metrics.TaskSubmitted()
	o.logger.Debug().Str("task_id", t.ID).Str("title", t.Title).Msg("task submitted")
	return t.ID, nil
}

// ProcessTask dispatches a single task to the first capable agent
func (o *Orchestrator) ProcessTask(ctx context.Context, t *task.Task) (task.Result, error) {
	return o.dispatcher.Dispatch(ctx, t)
}

// RunTaskLoop drains the queue, processing ready tasks one at a time until
// the queue is exhausted or Stop is called. Failed tasks go through the
// queue's retry policy.
func (o *Orchestrator) RunTaskLoop(ctx context.Context) error {
	o.setRunning(true)

	for o.IsRunning() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t := o.queue.PopNext()
		if t == nil {
			break
		}
		t.UpdateStatus(task.StatusQueued)

		result, err := o.dispatcher.Dispatch(ctx, t)
		o.SettleTask(t, result, err)
	}
	return nil
}

// SettleTask records a dispatch outcome on the queue. Success completes the
// task, retryable failures go through the retry policy, and non-retryable
// failures are terminal: a task no agent can route to must never retry.
func (o *Orchestrator) SettleTask(t *task.Task, result task.Result, err error) {
	if err != nil {
		if o.queue.MarkFailed(t.ID, err.Error()) {
			o.metrics.TaskRetryScheduled()
			o.logger.Debug().Str("task_id", t.ID).Msg("task scheduled for retry")
		} else {
			o.metrics.TaskProcessed(string(task.StatusFailed))
		}
		return
	}

	t.Result = &result
	switch {
	case result.Success:
		o.queue.MarkCompleted(t.ID)
		o.metrics.TaskProcessed(string(task.StatusCompleted))
	case result.Retryable:
		if o.queue.MarkFailed(t.ID, result.ErrorMessage) {
			o.metrics.TaskRetryScheduled()
			o.logger.Debug().Str("task_id", t.ID).Msg("task scheduled for retry")
		} else {
			o.metrics.TaskProcessed(string(task.StatusFailed))
		}
	default:
		o.queue.FailTerminal(t.ID, result.ErrorMessage)
		o.metrics.TaskProcessed(string(task.StatusFailed))
		o.logger.Warn().
			Str("task_id", t.ID).
			Str("error", result.ErrorMessage).
			Msg("task failed terminally")
	}
}

// Stop requests cooperative termination of the task loop
func (o *Orchestrator) Stop() {
	o.setRunning(false)
}

// Start marks the orchestrator running
func (o *Orchestrator) Start(ctx context.Context) error {
	o.setRunning(true)
	o.logger.Info().
		Str("name", o.config.Name).
		Int("agents", o.registry.Count()).
		Msg("orchestrator started")
	return nil
}

// Shutdown stops the loop and shuts down every registered agent
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.setRunning(false)

	var firstErr error
	for _, name := range o.registry.Names() {
		if err := o.registry.Unregister(ctx, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	o.logger.Info().Str("name", o.config.Name).Msg("orchestrator shut down")
	return firstErr
}

// CreateConversation starts a conversation between registered agents.
// Unknown participant names are dropped.
func (o *Orchestrator) CreateConversation(topic string, participants []string, mode conversation.Mode, taskID string) *conversation.Conversation {
	var valid []string
	for _, name := range participants {
		if _, ok := o.registry.Get(name); ok {
			valid = append(valid, name)
		}
	}
	return o.conversations.Create(topic, valid, mode, taskID)
}

// SendMessage routes a conversation message to the recipient agent
func (o *Orchestrator) SendMessage(ctx context.Context, conversationID, sender, recipient, content string) (*agent.Response, error) {
	return o.conversations.Send(ctx, conversationID, sender, recipient, content)
}

// BroadcastMessage sends the content to every conversation participant
// except the sender.
func (o *Orchestrator) BroadcastMessage(ctx context.Context, conversationID, sender, content string) ([]agent.Response, error) {
	return o.conversations.Broadcast(ctx, conversationID, sender, content)
}

// EndConversation completes the conversation
func (o *Orchestrator) EndConversation(conversationID string) {
	o.conversations.End(conversationID)
}

// ExecuteWorkflow runs a workflow through the engine
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, w *workflow.Workflow, inputs map[string]any) (*workflow.ExecutionResult, error) {
	return o.engine.Execute(ctx, w, inputs)
}

// Status returns a point-in-time snapshot of the orchestrator
func (o *Orchestrator) Status() StatusSnapshot {
	return StatusSnapshot{
		Name:                o.config.Name,
		Running:             o.IsRunning(),
		AgentCount:          o.registry.Count(),
		Agents:              o.registry.Names(),
		PendingTasks:        len(o.queue.TasksByStatus(task.StatusPending)),
		ActiveConversations: len(o.conversations.Active()),
	}
}
