package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/conversation"
)

// DefaultMaxParallelSteps bounds concurrent step execution per workflow
const DefaultMaxParallelSteps = 5

// MetricsCollector receives execution counters from the engine. The engine
// only depends on this narrow surface; the observability package provides a
// Prometheus-backed implementation.
type MetricsCollector interface {
	WorkflowStarted(name string)
	WorkflowFinished(name string, status Status, duration time.Duration)
	StepExecuted(stepType StepType, success bool, duration time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) WorkflowStarted(string)                         {}
func (nopMetrics) WorkflowFinished(string, Status, time.Duration) {}
func (nopMetrics) StepExecuted(StepType, bool, time.Duration)     {}

// ExecutionResult is the terminal outcome of a workflow run
type ExecutionResult struct {
	WorkflowID   string
	Success      bool
	Status       Status
	Outputs      map[string]map[string]any
	StepResults  map[string]map[string]any
	ErrorMessage string
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
}

// Engine executes workflows, running ready steps concurrently up to the
// parallelism bound. One Engine may run multiple workflows; per-workflow
// execution state lives on the workflow itself.
type Engine struct {
	mu            sync.Mutex
	agents        map[string]agent.Agent
	running       map[string]*Workflow
	results       map[string]*ExecutionResult
	maxParallel   int
	conversations *conversation.Manager
	metrics       MetricsCollector
	logger        zerolog.Logger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithMaxParallelSteps overrides the per-round parallelism bound
func WithMaxParallelSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxParallel = n
		}
	}
}

// WithConversationManager wires conversation steps through the manager
func WithConversationManager(m *conversation.Manager) EngineOption {
	return func(e *Engine) { e.conversations = m }
}

// WithMetrics attaches an execution metrics collector
func WithMetrics(m MetricsCollector) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a workflow engine
func NewEngine(logger zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		agents:      make(map[string]agent.Agent),
		running:     make(map[string]*Workflow),
		results:     make(map[string]*ExecutionResult),
		maxParallel: DefaultMaxParallelSteps,
		metrics:     nopMetrics{},
		logger:      logger.With().Str("component", "workflow_engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterAgent makes an agent available to task and action steps
func (e *Engine) RegisterAgent(a agent.Agent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents[a.Name()] = a
}

// RegisterAgents registers multiple agents
func (e *Engine) RegisterAgents(agents map[string]agent.Agent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, a := range agents {
		e.agents[name] = a
	}
}

func (e *Engine) agentByName(name string) (agent.Agent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.agents[name]
	return a, ok
}

// Execute runs the workflow to completion. Ready steps are launched in
// rounds of at most maxParallel; a round finishes before the next ready set
// is computed. Steps left pending behind a failed dependency block the
// workflow and terminate the run with an error message.
func (e *Engine) Execute(ctx context.Context, w *Workflow, inputs map[string]any) (*ExecutionResult, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	w.StartedAt = &start
	w.Status = StatusRunning
	for k, v := range inputs {
		w.Variables[k] = v
	}

	e.mu.Lock()
	e.running[w.ID] = w
	e.mu.Unlock()
	e.metrics.WorkflowStarted(w.Name)

	e.logger.Info().
		Str("workflow_id", w.ID).
		Str("workflow", w.Name).
		Int("steps", len(w.Steps)).
		Msg("workflow started")

	completed := make(map[string]struct{})
	stepResults := make(map[string]map[string]any)
	outputs := make(map[string]map[string]any)

	success := true
	errMsg := ""

runLoop:
	for {
		switch e.workflowStatus(w) {
		case StatusCancelled:
			success = false
			errMsg = "workflow cancelled"
			break runLoop
		case StatusPaused:
			if err := e.waitWhilePaused(ctx, w); err != nil {
				success = false
				errMsg = err.Error()
				break runLoop
			}
			continue
		}

		ready := w.ReadySteps(completed)
		if len(ready) == 0 {
			pending := w.stepsWithStatus(StatusPending)
			if len(pending) == 0 {
				break
			}
			failed := w.stepsWithStatus(StatusFailed)
			if len(failed) > 0 {
				success = false
				errMsg = "Workflow blocked: steps failed: " + quoteNames(stepNames(failed))
				break
			}
			break
		}

		if len(ready) > e.maxParallel {
			ready = ready[:e.maxParallel]
		}
		e.executeRound(ctx, w, ready)

		for _, s := range ready {
			if s.Status == StatusFailed {
				stepResults[s.ID] = map[string]any{"error": s.Error}
				continue
			}
			stepResults[s.ID] = s.Result
			completed[s.ID] = struct{}{}
			if s.Result != nil {
				outputs[s.Name] = s.Result
			}
		}
	}

	// Finalize under the lock: Cancel/Pause/Resume mutate the workflow status
	// until the workflow leaves the running set.
	e.mu.Lock()
	if success {
		failed := w.stepsWithStatus(StatusFailed)
		if len(failed) > 0 {
			success = false
			errMsg = "Steps failed: " + quoteNames(stepNames(failed))
		}
	}

	if success {
		w.Status = StatusCompleted
	} else if w.Status != StatusCancelled {
		w.Status = StatusFailed
	}

	end := time.Now()
	w.CompletedAt = &end

	result := &ExecutionResult{
		WorkflowID:   w.ID,
		Success:      success,
		Status:       w.Status,
		Outputs:      outputs,
		StepResults:  stepResults,
		ErrorMessage: errMsg,
		StartedAt:    start,
		CompletedAt:  end,
		Duration:     end.Sub(start),
	}

	e.results[w.ID] = result
	delete(e.running, w.ID)
	e.mu.Unlock()
	e.metrics.WorkflowFinished(w.Name, w.Status, result.Duration)

	e.logger.Info().
		Str("workflow_id", w.ID).
		Str("status", string(w.Status)).
		Dur("duration", result.Duration).
		Msg("workflow finished")

	return result, nil
}

// executeRound runs the given steps concurrently and waits for all of them
func (e *Engine) executeRound(ctx context.Context, w *Workflow, steps []*Step) {
	var wg sync.WaitGroup
	for _, s := range steps {
		wg.Add(1)
		go func(s *Step) {
			defer wg.Done()
			e.executeStep(ctx, w, s)
		}(s)
	}
	wg.Wait()
}

func (e *Engine) workflowStatus(w *Workflow) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return w.Status
}

// waitWhilePaused blocks until the workflow leaves the paused state
func (e *Engine) waitWhilePaused(ctx context.Context, w *Workflow) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if e.workflowStatus(w) != StatusPaused {
				return nil
			}
		}
	}
}

// GetStatus returns the status of a running or finished workflow
func (e *Engine) GetStatus(workflowID string) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.running[workflowID]; ok {
		return w.Status, true
	}
	if r, ok := e.results[workflowID]; ok {
		return r.Status, true
	}
	return "", false
}

// GetResult returns the result of a finished workflow
func (e *Engine) GetResult(workflowID string) (*ExecutionResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.results[workflowID]
	return r, ok
}

// Cancel marks a running workflow cancelled; the run loop observes the
// status at the next round boundary.
func (e *Engine) Cancel(workflowID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.running[workflowID]
	if !ok {
		return false
	}
	w.Status = StatusCancelled
	return true
}

// Pause suspends dispatching of new rounds for a running workflow
func (e *Engine) Pause(workflowID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.running[workflowID]
	if !ok || w.Status != StatusRunning {
		return false
	}
	w.Status = StatusPaused
	return true
}

// Resume returns a paused workflow to running
func (e *Engine) Resume(workflowID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.running[workflowID]
	if !ok || w.Status != StatusPaused {
		return false
	}
	w.Status = StatusRunning
	return true
}

// Running returns the ids of workflows currently executing
func (e *Engine) Running() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.running))
	for id := range e.running {
		out = append(out, id)
	}
	return out
}

func (w *Workflow) stepsWithStatus(status Status) []*Step {
	var out []*Step
	for _, s := range w.Steps {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

func stepNames(steps []*Step) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}
