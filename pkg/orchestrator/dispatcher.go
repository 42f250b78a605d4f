package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/correction"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

// Dispatcher routes a task to the first capable agent. Selection is
// deterministic: candidates come back in registration order and the first
// one wins.
type Dispatcher struct {
	registry          *agent.Registry
	corrections       *correction.Loop
	enableCorrections bool
	logger            zerolog.Logger
}

// NewDispatcher creates a dispatcher over the registry
func NewDispatcher(registry *agent.Registry, corrections *correction.Loop, enableCorrections bool, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry:          registry,
		corrections:       corrections,
		enableCorrections: enableCorrections,
		logger:            logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch finds an agent for the task, runs it, and escalates outputs the
// agent flags for correction. A missing agent yields an unsuccessful result,
// not an error; errors mean the agent itself failed.
func (d *Dispatcher) Dispatch(ctx context.Context, t *task.Task) (task.Result, error) {
	started := time.Now()

	candidates := d.registry.ForTask(t)
	if len(candidates) == 0 {
		return task.Result{
			Success:      false,
			ErrorMessage: fmt.Sprintf("No suitable agent found for task type: %s", t.Type),
		}, nil
	}

	a := candidates[0]
	t.AssignedAgent = a.Name()
	t.UpdateStatus(task.StatusInProgress)

	d.logger.Debug().
		Str("task_id", t.ID).
		Str("agent", a.Name()).
		Str("task_type", string(t.Type)).
		Msg("task dispatched")

	resp, err := a.HandleTask(ctx, t)
	if err != nil {
		return task.Result{}, err
	}

	if d.enableCorrections && resp.NeedsCorrection && d.corrections != nil {
		t.UpdateStatus(task.StatusUnderReview)
		loopResult, err := d.corrections.Run(ctx, t, resp.Content, map[string]any{
			"task":  t.ToMap(),
			"agent": a.Name(),
		})
		if err != nil {
			return task.Result{}, err
		}
		return task.Result{
			Success:       loopResult.Success,
			Output:        loopResult.FinalOutput,
			ExecutionTime: time.Since(started),
			Metadata: map[string]any{
				"correction_iterations": loopResult.TotalIterations,
				"correction_status":     string(loopResult.Status),
			},
		}, nil
	}

	result := task.Result{
		Success:       resp.Success,
		Output:        resp.Content,
		Artifacts:     resp.Artifacts,
		ExecutionTime: time.Since(started),
	}
	if !resp.Success {
		result.ErrorMessage = resp.CorrectionReason
		result.Retryable = true
	}
	return result, nil
}
