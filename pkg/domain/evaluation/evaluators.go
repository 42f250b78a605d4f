package evaluation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// KeywordEvaluator checks output text for required and forbidden substrings.
// Each missing required keyword and each forbidden keyword present produces a
// finding and lowers the score proportionally.
type KeywordEvaluator struct {
	name      string
	required  []string
	forbidden []string
}

// NewKeywordEvaluator creates a keyword evaluator
func NewKeywordEvaluator(name string, required, forbidden []string) *KeywordEvaluator {
	return &KeywordEvaluator{name: name, required: required, forbidden: forbidden}
}

func (e *KeywordEvaluator) Name() string { return e.name }

func (e *KeywordEvaluator) Criteria() []string {
	return []string{"required keywords present", "forbidden keywords absent"}
}

func (e *KeywordEvaluator) Evaluate(_ context.Context, content any, _ map[string]any) (Result, error) {
	text := strings.ToLower(fmt.Sprint(content))
	checks := len(e.required) + len(e.forbidden)
	if checks == 0 {
		return Result{EvaluatorName: e.name, Passed: true, Score: 1.0, Timestamp: time.Now()}, nil
	}

	result := Result{EvaluatorName: e.name, Timestamp: time.Now()}
	failures := 0
	for _, kw := range e.required {
		if !strings.Contains(text, strings.ToLower(kw)) {
			failures++
			result.Findings = append(result.Findings, Finding{
				Category:   "content",
				Message:    fmt.Sprintf("required keyword %q missing", kw),
				Severity:   SeverityError,
				Suggestion: fmt.Sprintf("include %q in the output", kw),
			})
			result.CorrectionSuggestions = append(result.CorrectionSuggestions,
				fmt.Sprintf("add missing keyword %q", kw))
		}
	}
	for _, kw := range e.forbidden {
		if strings.Contains(text, strings.ToLower(kw)) {
			failures++
			result.Findings = append(result.Findings, Finding{
				Category:   "content",
				Message:    fmt.Sprintf("forbidden keyword %q present", kw),
				Severity:   SeverityError,
				Suggestion: fmt.Sprintf("remove %q from the output", kw),
			})
			result.CorrectionSuggestions = append(result.CorrectionSuggestions,
				fmt.Sprintf("remove forbidden keyword %q", kw))
		}
	}

	result.Score = float64(checks-failures) / float64(checks)
	result.Passed = failures == 0
	result.NeedsCorrection = failures > 0
	return result, nil
}

func (e *KeywordEvaluator) ShouldTriggerCorrection(result Result) bool {
	return result.NeedsCorrection
}

// LengthEvaluator checks that output text length falls within bounds. A zero
// max disables the upper bound.
type LengthEvaluator struct {
	name string
	min  int
	max  int
}

// NewLengthEvaluator creates a length evaluator
func NewLengthEvaluator(name string, min, max int) *LengthEvaluator {
	return &LengthEvaluator{name: name, min: min, max: max}
}

func (e *LengthEvaluator) Name() string { return e.name }

func (e *LengthEvaluator) Criteria() []string {
	return []string{"output length within bounds"}
}

func (e *LengthEvaluator) Evaluate(_ context.Context, content any, _ map[string]any) (Result, error) {
	text := fmt.Sprint(content)
	result := Result{EvaluatorName: e.name, Passed: true, Score: 1.0, Timestamp: time.Now()}

	switch {
	case len(text) < e.min:
		result.Passed = false
		result.Score = 0.0
		result.NeedsCorrection = true
		result.Findings = append(result.Findings, Finding{
			Category: "length",
			Message:  fmt.Sprintf("output length %d below minimum %d", len(text), e.min),
			Severity: SeverityError,
		})
	case e.max > 0 && len(text) > e.max:
		result.Passed = false
		result.Score = 0.5
		result.NeedsCorrection = true
		result.Findings = append(result.Findings, Finding{
			Category: "length",
			Message:  fmt.Sprintf("output length %d above maximum %d", len(text), e.max),
			Severity: SeverityWarning,
		})
	}
	return result, nil
}

func (e *LengthEvaluator) ShouldTriggerCorrection(result Result) bool {
	return result.NeedsCorrection
}
