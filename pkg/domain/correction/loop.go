// Package correction implements the bounded evaluate-correct-re-evaluate loop
// applied to a single task's output.
package correction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/evaluation"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

// Status of a correction loop run
type Status string

const (
	StatusPending              Status = "pending"
	StatusEvaluating           Status = "evaluating"
	StatusCorrecting           Status = "correcting"
	StatusCompleted            Status = "completed"
	StatusMaxIterationsReached Status = "max_iterations_reached"
	StatusFailed               Status = "failed"
)

// Iteration is a single pass of the loop
type Iteration struct {
	Number            int
	Evaluation        evaluation.Result
	CorrectionApplied string
	Timestamp         time.Time
}

// Result of a correction loop run
type Result struct {
	Success         bool
	FinalOutput     any
	Iterations      []Iteration
	TotalIterations int
	Status          Status
	Metadata        map[string]any
}

// Handler rewrites an output in response to findings of its category. The
// returned output replaces the current one.
type Handler func(ctx context.Context, output any, result evaluation.Result) (any, error)

// Loop iterates evaluation and correction until the output passes or the
// iteration cap is reached. Evaluators run in registration order; the
// combined verdict is pessimistic on pass and averaged on score.
type Loop struct {
	evaluators      []evaluation.Evaluator
	handlers        map[string]Handler
	maxIterations   int
	minPassingScore float64
	logger          zerolog.Logger
}

// NewLoop creates a correction loop with the given bounds
func NewLoop(maxIterations int, minPassingScore float64, logger zerolog.Logger) *Loop {
	return &Loop{
		handlers:        make(map[string]Handler),
		maxIterations:   maxIterations,
		minPassingScore: minPassingScore,
		logger:          logger.With().Str("component", "correction_loop").Logger(),
	}
}

// NewDefaultLoop returns a loop with 3 iterations and a 0.8 passing score
func NewDefaultLoop(logger zerolog.Logger) *Loop {
	return NewLoop(3, 0.8, logger)
}

// NewStrictLoop returns a loop with 5 iterations and a 0.95 passing score
func NewStrictLoop(logger zerolog.Logger) *Loop {
	return NewLoop(5, 0.95, logger)
}

// NewLenientLoop returns a loop with 2 iterations and a 0.6 passing score
func NewLenientLoop(logger zerolog.Logger) *Loop {
	return NewLoop(2, 0.6, logger)
}

// AddEvaluator appends an evaluator; ordering is preserved
func (l *Loop) AddEvaluator(e evaluation.Evaluator) {
	l.evaluators = append(l.evaluators, e)
}

// RegisterHandler attaches a correction handler for a finding category
func (l *Loop) RegisterHandler(category string, h Handler) {
	l.handlers[category] = h
}

// MaxIterations returns the loop's iteration cap
func (l *Loop) MaxIterations() int { return l.maxIterations }

// Run executes the loop against the task's output. The task's correction
// counter and status are updated as iterations apply corrections; loop
// exhaustion transitions the task to failed.
func (l *Loop) Run(ctx context.Context, t *task.Task, initialOutput any, evalCtx map[string]any) (Result, error) {
	current := initialOutput
	if evalCtx == nil {
		evalCtx = make(map[string]any)
	}
	var iterations []Iteration

	for n := 1; n <= l.maxIterations; n++ {
		results, err := l.evaluateAll(ctx, current, evalCtx)
		if err != nil {
			return Result{
				Success:         false,
				FinalOutput:     current,
				Iterations:      iterations,
				TotalIterations: n - 1,
				Status:          StatusFailed,
			}, err
		}
		combined := evaluation.Combine(results)

		iter := Iteration{Number: n, Evaluation: combined, Timestamp: time.Now()}

		if combined.Passed && combined.Score >= l.minPassingScore {
			iterations = append(iterations, iter)
			return Result{
				Success:         true,
				FinalOutput:     current,
				Iterations:      iterations,
				TotalIterations: n,
				Status:          StatusCompleted,
			}, nil
		}

		if !combined.NeedsCorrection {
			iterations = append(iterations, iter)
			return Result{
				Success:         combined.Passed,
				FinalOutput:     current,
				Iterations:      iterations,
				TotalIterations: n,
				Status:          StatusCompleted,
			}, nil
		}

		current, iter.CorrectionApplied = l.applyCorrections(ctx, current, combined)
		iterations = append(iterations, iter)

		t.CorrectionCount++
		t.UpdateStatus(task.StatusNeedsCorrection)

		l.logger.Debug().
			Str("task_id", t.ID).
			Int("iteration", n).
			Float64("score", combined.Score).
			Msg("correction applied")
	}

	t.UpdateStatus(task.StatusFailed)
	return Result{
		Success:         false,
		FinalOutput:     current,
		Iterations:      iterations,
		TotalIterations: l.maxIterations,
		Status:          StatusMaxIterationsReached,
	}, nil
}

func (l *Loop) evaluateAll(ctx context.Context, output any, evalCtx map[string]any) ([]evaluation.Result, error) {
	results := make([]evaluation.Result, 0, len(l.evaluators))
	for _, e := range l.evaluators {
		r, err := e.Evaluate(ctx, output, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("evaluator %s: %w", e.Name(), err)
		}
		results = append(results, r)
	}
	return results, nil
}

// applyCorrections runs handlers for error and critical findings, returning
// the (possibly rewritten) output and a description of what was applied.
func (l *Loop) applyCorrections(ctx context.Context, output any, combined evaluation.Result) (any, string) {
	var applied []string
	for _, finding := range combined.Findings {
		if finding.Severity != evaluation.SeverityError && finding.Severity != evaluation.SeverityCritical {
			continue
		}
		handler, ok := l.handlers[finding.Category]
		if !ok {
			applied = append(applied, fmt.Sprintf("no handler for %s", finding.Category))
			continue
		}
		rewritten, err := handler(ctx, output, combined)
		if err != nil {
			applied = append(applied, fmt.Sprintf("handler for %s failed: %v", finding.Category, err))
			continue
		}
		output = rewritten
		applied = append(applied, fmt.Sprintf("applied correction for %s: %s", finding.Category, finding.Message))
	}

	if len(applied) == 0 {
		applied = append(applied, "no automatic corrections available")
	}
	return output, strings.Join(applied, "; ")
}
