package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockwork-labs/orchestrator/pkg/agents"
	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/conversation"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

func registerWorkers(e *Engine, names ...string) {
	for _, name := range names {
		e.RegisterAgent(agents.NewFuncAgent(name, nil, nil, zerolog.Nop()))
	}
}

func TestEngineExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("feature workflow completes with outputs for every step", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())
		registerWorkers(e, "PMAgent", "ArchitectAgent", "DevAgent", "QAAgent", "SecurityAgent", "DocsAgent")

		w := FeatureDevelopment()
		result, err := e.Execute(ctx, w, map[string]any{"feature": "search"})
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, StatusCompleted, result.Status)
		for _, name := range []string{"planning", "architecture", "development", "testing", "security_review", "documentation"} {
			step, ok := w.StepByName(name)
			require.True(t, ok)
			assert.Equal(t, StatusCompleted, step.Status, "step %s", name)
			require.Contains(t, result.Outputs, name)
			assert.Equal(t, true, result.Outputs[name]["success"])
		}

		// Documentation may not start before both of its dependencies finish.
		doc, _ := w.StepByName("documentation")
		testing_, _ := w.StepByName("testing")
		security, _ := w.StepByName("security_review")
		require.NotNil(t, doc.StartedAt)
		assert.False(t, doc.StartedAt.Before(*testing_.CompletedAt))
		assert.False(t, doc.StartedAt.Before(*security.CompletedAt))
	})

	t.Run("failed step blocks its dependents", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())
		registerWorkers(e, "PMAgent", "ArchitectAgent", "QAAgent", "SecurityAgent", "DocsAgent")

		dev := agents.NewFuncAgent("DevAgent", nil, nil, zerolog.Nop())
		dev.OnTask = func(context.Context, *task.Task) (agent.Response, error) {
			return agent.Response{}, errors.New("compiler exploded")
		}
		e.RegisterAgent(dev)

		w := FeatureDevelopment()
		result, err := e.Execute(ctx, w, nil)
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, "Workflow blocked: steps failed: ['development']", result.ErrorMessage)

		devStep, _ := w.StepByName("development")
		assert.Equal(t, StatusFailed, devStep.Status)
		assert.Contains(t, devStep.Error, "compiler exploded")
		require.Contains(t, result.StepResults, devStep.ID)
		assert.Contains(t, result.StepResults[devStep.ID]["error"], "compiler exploded")

		for _, name := range []string{"testing", "security_review", "documentation"} {
			step, _ := w.StepByName(name)
			assert.Equal(t, StatusPending, step.Status, "step %s", name)
		}
	})

	t.Run("task step with no agent completes with a sentinel", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())

		w := New("unassigned", "")
		w.AddStep(NewStep("orphan", StepTypeTask, nil))

		result, err := e.Execute(ctx, w, nil)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "Task step 'orphan' completed (no agent assigned)",
			result.Outputs["orphan"]["content"])
		assert.Nil(t, result.Outputs["orphan"]["agent"])
	})

	t.Run("agent action against an unknown agent records a soft failure", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())

		w := New("ghost action", "")
		w.AddStep(NewStep("ping", StepTypeAgentAction, map[string]any{"agent": "GhostAgent"}))

		result, err := e.Execute(ctx, w, nil)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, false, result.Outputs["ping"]["success"])
		assert.Equal(t, "Agent 'GhostAgent' not found", result.Outputs["ping"]["error"])
	})

	t.Run("invalid workflow is rejected before running", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())
		w := New("broken", "")
		w.AddStep(NewStep("a", StepTypeTask, nil).DependsOn("missing"))

		_, err := e.Execute(ctx, w, nil)
		require.Error(t, err)
	})
}

func TestEngineConditionSteps(t *testing.T) {
	ctx := context.Background()

	t.Run("expression conditions evaluate against variables", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())

		w := New("gated", "")
		gate := NewStep("gate", StepTypeCondition, nil)
		gate.Condition = "environment == 'production'"
		w.AddStep(gate)

		result, err := e.Execute(ctx, w, map[string]any{"environment": "production"})
		require.NoError(t, err)
		assert.Equal(t, true, result.Outputs["gate"]["result"])
	})

	t.Run("numeric comparison normalizes int and float", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())

		w := New("numeric", "")
		gate := NewStep("gate", StepTypeCondition, nil)
		gate.Condition = "replicas == 3"
		w.AddStep(gate)

		result, err := e.Execute(ctx, w, map[string]any{"replicas": 3})
		require.NoError(t, err)
		assert.Equal(t, true, result.Outputs["gate"]["result"])
	})

	t.Run("predicate callback takes precedence", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())

		w := New("predicated", "")
		gate := NewStep("gate", StepTypeCondition, map[string]any{
			"predicate": func(vars map[string]any) bool { return vars["ok"] == true },
		})
		gate.Condition = "ignored"
		w.AddStep(gate)

		result, err := e.Execute(ctx, w, map[string]any{"ok": true})
		require.NoError(t, err)
		assert.Equal(t, true, result.Outputs["gate"]["result"])
	})

	t.Run("inequality and truthiness", func(t *testing.T) {
		vars := map[string]any{"mode": "fast", "count": 0, "flag": true}
		assert.True(t, evalCondition("mode != 'slow'", vars))
		assert.False(t, evalCondition("mode != 'fast'", vars))
		assert.False(t, evalCondition("count", vars))
		assert.True(t, evalCondition("flag", vars))
		assert.False(t, evalCondition("missing", vars))
	})
}

func TestEngineParallelism(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent steps stay within the bound", func(t *testing.T) {
		e := NewEngine(zerolog.Nop(), WithMaxParallelSteps(2))

		var inFlight, peak int64
		worker := agents.NewFuncAgent("Worker", nil, nil, zerolog.Nop())
		worker.OnTask = func(context.Context, *task.Task) (agent.Response, error) {
			n := atomic.AddInt64(&inFlight, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return agent.Response{AgentName: "Worker", Content: "done", Success: true}, nil
		}
		e.RegisterAgent(worker)

		w := New("wide", "")
		for _, name := range []string{"s1", "s2", "s3", "s4", "s5"} {
			w.AddStep(NewStep(name, StepTypeTask, map[string]any{"agent": "Worker"}))
		}

		result, err := e.Execute(ctx, w, nil)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
	})
}

func TestEngineControl(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel stops dispatching further rounds", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())

		var w *Workflow
		canceller := agents.NewFuncAgent("Canceller", nil, nil, zerolog.Nop())
		canceller.OnTask = func(context.Context, *task.Task) (agent.Response, error) {
			e.Cancel(w.ID)
			return agent.Response{AgentName: "Canceller", Content: "cancelled the run", Success: true}, nil
		}
		e.RegisterAgent(canceller)

		w = New("short lived", "")
		first := NewStep("first", StepTypeTask, map[string]any{"agent": "Canceller"})
		second := NewStep("second", StepTypeTask, map[string]any{"agent": "Canceller"}).DependsOn(first.ID)
		w.AddStep(first)
		w.AddStep(second)

		result, err := e.Execute(ctx, w, nil)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "workflow cancelled", result.ErrorMessage)
		assert.Equal(t, StatusCancelled, result.Status)
		assert.Equal(t, StatusPending, second.Status)
	})

	t.Run("cancel of an unknown workflow is a no-op", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())
		assert.False(t, e.Cancel("nope"))
		assert.False(t, e.Pause("nope"))
		assert.False(t, e.Resume("nope"))
	})

	t.Run("pause and resume during a run leave a consistent final state", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())

		worker := agents.NewFuncAgent("Worker", nil, nil, zerolog.Nop())
		worker.OnTask = func(context.Context, *task.Task) (agent.Response, error) {
			time.Sleep(time.Millisecond)
			return agent.Response{AgentName: "Worker", Content: "ok", Success: true}, nil
		}
		e.RegisterAgent(worker)

		w := New("hammered", "")
		var prev string
		for i := 0; i < 4; i++ {
			s := NewStep(fmt.Sprintf("step_%d", i), StepTypeTask, map[string]any{"agent": "Worker"})
			if prev != "" {
				s.DependsOn(prev)
			}
			w.AddStep(s)
			prev = s.ID
		}

		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					e.Pause(w.ID)
					e.GetStatus(w.ID)
					e.Resume(w.ID)
				}
			}
		}()

		result, err := e.Execute(ctx, w, nil)
		close(done)
		wg.Wait()

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, StatusCompleted, result.Status)
		for _, s := range w.Steps {
			assert.Equal(t, StatusCompleted, s.Status, "step %s", s.Name)
		}
	})

	t.Run("status and result are kept after completion", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())
		w := New("kept", "")
		w.AddStep(NewStep("only", StepTypeTask, nil))

		_, err := e.Execute(ctx, w, nil)
		require.NoError(t, err)

		status, ok := e.GetStatus(w.ID)
		require.True(t, ok)
		assert.Equal(t, StatusCompleted, status)

		result, ok := e.GetResult(w.ID)
		require.True(t, ok)
		assert.True(t, result.Success)
		assert.Empty(t, e.Running())
	})

	t.Run("step timeout fails the run", func(t *testing.T) {
		e := NewEngine(zerolog.Nop())

		w := New("slow", "")
		wait := NewStep("napping", StepTypeWait, map[string]any{"seconds": 5})
		wait.Timeout = 50 * time.Millisecond
		w.AddStep(wait)

		result, err := e.Execute(ctx, w, nil)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "Steps failed: ['napping']", result.ErrorMessage)
		assert.Contains(t, wait.Error, "timed out after")
	})
}

func TestEngineConversationStep(t *testing.T) {
	ctx := context.Background()

	registry := agent.NewRegistry(zerolog.Nop())
	for _, name := range []string{"DevAgent", "QAAgent", "SecurityAgent"} {
		require.NoError(t, registry.Register(ctx, agents.NewFuncAgent(name, nil, nil, zerolog.Nop())))
	}
	manager := conversation.NewManager(registry, zerolog.Nop())
	e := NewEngine(zerolog.Nop(), WithConversationManager(manager))

	w := CodeReview()
	e.RegisterAgent(agents.NewFuncAgent("SecurityAgent", nil, nil, zerolog.Nop()))

	result, err := e.Execute(ctx, w, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)

	discussion := result.Outputs["review_discussion"]
	assert.Equal(t, true, discussion["success"])
	assert.Equal(t, "Code Review Discussion", discussion["topic"])
	assert.Equal(t, 2, discussion["turns"])
}

func TestTimeoutError(t *testing.T) {
	inner := context.DeadlineExceeded
	err := &TimeoutError{StepName: "development", Timeout: time.Second, Err: inner}

	assert.True(t, IsTimeout(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsTimeout(errors.New("plain")))
	assert.Contains(t, err.Error(), "development")
}
