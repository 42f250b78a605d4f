package workflow

import "fmt"

// WorkflowError carries the failing step's name and attempt number
type WorkflowError struct {
	Step    string
	Attempt int
	Err     error
}

func (w *WorkflowError) Error() string {
	if w.Attempt > 1 {
		return fmt.Sprintf("step '%s' failed on attempt %d: %v", w.Step, w.Attempt, w.Err)
	}
	return fmt.Sprintf("step '%s' failed: %v", w.Step, w.Err)
}

// Unwrap allows errors.Is and errors.As to traverse into the cause
func (w *WorkflowError) Unwrap() error {
	return w.Err
}

func NewWorkflowError(step string, attempt int, err error) *WorkflowError {
	return &WorkflowError{
		Step:    step,
		Attempt: attempt,
		Err:     err,
	}
}
