// Package evaluation defines evaluator contracts and the combination rule
// used by the correction loop.
package evaluation

import (
	"context"
	"time"
)

// Severity levels for evaluation findings
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Finding is a single issue reported by an evaluator
type Finding struct {
	Category   string
	Message    string
	Severity   Severity
	Location   string
	Suggestion string
	Metadata   map[string]any
}

// Result of an evaluation. Score is in [0, 1].
type Result struct {
	EvaluatorName         string
	Passed                bool
	Score                 float64
	Findings              []Finding
	NeedsCorrection       bool
	CorrectionSuggestions []string
	Metadata              map[string]any
	Timestamp             time.Time
}

// Evaluator assesses a single output and emits findings. Evaluators are
// stateless with respect to each other; they may hold private memoization.
type Evaluator interface {
	Name() string
	Criteria() []string

	// Evaluate scores content against the evaluator's criteria
	Evaluate(ctx context.Context, content any, evalCtx map[string]any) (Result, error)

	// ShouldTriggerCorrection reports whether the result warrants correction
	ShouldTriggerCorrection(result Result) bool
}

// Combine merges evaluator results: passed is the conjunction, score the
// arithmetic mean, needs-correction the disjunction, findings and suggestions
// the concatenation preserving per-evaluator order. Combining nothing yields
// a passing result.
func Combine(results []Result) Result {
	combined := Result{
		EvaluatorName: "combined",
		Passed:        true,
		Score:         1.0,
		Timestamp:     time.Now(),
	}
	if len(results) == 0 {
		return combined
	}

	var total float64
	for _, r := range results {
		total += r.Score
		combined.Passed = combined.Passed && r.Passed
		combined.NeedsCorrection = combined.NeedsCorrection || r.NeedsCorrection
		combined.Findings = append(combined.Findings, r.Findings...)
		combined.CorrectionSuggestions = append(combined.CorrectionSuggestions, r.CorrectionSuggestions...)
	}
	combined.Score = total / float64(len(results))
	return combined
}
