package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/conversation"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

// TimeoutError reports a step exceeding its configured timeout
type TimeoutError struct {
	StepName string
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step %s timed out after %s: %v", e.StepName, e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTimeout reports whether the error chain contains a step timeout
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// executeStep runs a single step and records its outcome on the step itself.
// Failures leave the step failed with the error text; they never panic the
// round.
func (e *Engine) executeStep(ctx context.Context, w *Workflow, s *Step) {
	start := time.Now()
	e.mu.Lock()
	s.Status = StatusRunning
	s.StartedAt = &start
	e.mu.Unlock()

	stepCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	result, err := e.dispatch(stepCtx, w, s)
	if err != nil && s.Timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		err = &TimeoutError{StepName: s.Name, Timeout: s.Timeout, Err: err}
	}

	end := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		werr := &WorkflowError{Step: s.Name, Attempt: s.RetryCount + 1, Err: err}
		s.Status = StatusFailed
		s.Error = werr.Error()
		e.metrics.StepExecuted(s.Type, false, end.Sub(start))
		e.logger.Warn().
			Str("workflow_id", w.ID).
			Str("step", s.Name).
			Err(err).
			Msg("step failed")
		return
	}

	s.Status = StatusCompleted
	s.CompletedAt = &end
	s.Result = result
	e.metrics.StepExecuted(s.Type, true, end.Sub(start))
	e.logger.Debug().
		Str("workflow_id", w.ID).
		Str("step", s.Name).
		Dur("duration", end.Sub(start)).
		Msg("step completed")
}

func (e *Engine) dispatch(ctx context.Context, w *Workflow, s *Step) (map[string]any, error) {
	switch s.Type {
	case StepTypeTask:
		return e.executeTaskStep(ctx, s)
	case StepTypeAgentAction:
		return e.executeAgentActionStep(ctx, s)
	case StepTypeConversation:
		return e.executeConversationStep(ctx, s)
	case StepTypeCondition:
		return e.executeConditionStep(w, s)
	case StepTypeParallel:
		subSteps, _ := s.Config["steps"].([]any)
		return map[string]any{"success": true, "sub_steps_count": len(subSteps)}, nil
	case StepTypeWait:
		return e.executeWaitStep(ctx, s)
	default:
		// approval and loop are reserved
		return map[string]any{"success": true, "step_type": string(s.Type)}, nil
	}
}

func (e *Engine) executeTaskStep(ctx context.Context, s *Step) (map[string]any, error) {
	agentName, _ := s.Config["agent"].(string)
	taskType := stringOr(s.Config, "task_type", string(task.TypeDevelopment))
	description := stringOr(s.Config, "description", s.Name)

	a, ok := e.agentByName(agentName)
	if agentName == "" || !ok {
		return map[string]any{
			"success": true,
			"content": fmt.Sprintf("Task step '%s' completed (no agent assigned)", s.Name),
			"agent":   nil,
		}, nil
	}

	t := task.New(s.Name, description)
	t.Type = task.Type(taskType)

	resp, err := a.HandleTask(ctx, t)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success":   resp.Success,
		"content":   resp.Content,
		"agent":     agentName,
		"artifacts": resp.Artifacts,
	}, nil
}

func (e *Engine) executeAgentActionStep(ctx context.Context, s *Step) (map[string]any, error) {
	agentName, _ := s.Config["agent"].(string)
	action := stringOr(s.Config, "action", "process")

	a, ok := e.agentByName(agentName)
	if agentName == "" || !ok {
		return map[string]any{
			"success": false,
			"error":   fmt.Sprintf("Agent '%s' not found", agentName),
		}, nil
	}

	msg := agent.NewMessage("workflow_engine", agentName, action)
	msg.MessageType = "action"
	resp, err := a.ProcessMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success": resp.Success,
		"agent":   agentName,
		"action":  action,
	}, nil
}

func (e *Engine) executeConversationStep(ctx context.Context, s *Step) (map[string]any, error) {
	participants := stringSlice(s.Config["participants"])
	topic := stringOr(s.Config, "topic", "Discussion")
	mode := conversation.Mode(stringOr(s.Config, "mode", string(conversation.ModeDynamic)))

	turns := 0
	if e.conversations != nil && len(participants) > 0 {
		conv := e.conversations.Create(topic, participants, mode, "")
		prompt := stringOr(s.Config, "prompt", topic)
		if _, err := e.conversations.Broadcast(ctx, conv.ID, participants[0], prompt); err != nil {
			return nil, err
		}
		turns = len(conv.Turns)
		e.conversations.End(conv.ID)
	}

	return map[string]any{
		"success":      true,
		"topic":        topic,
		"participants": participants,
		"turns":        turns,
	}, nil
}

// executeConditionStep evaluates the step's condition against workflow
// variables. A predicate callback in config takes precedence over the
// expression string.
func (e *Engine) executeConditionStep(w *Workflow, s *Step) (map[string]any, error) {
	result := true
	if pred, ok := s.Config["predicate"].(func(map[string]any) bool); ok {
		result = pred(w.Variables)
	} else if s.Condition != "" {
		result = evalCondition(s.Condition, w.Variables)
	}
	return map[string]any{
		"success":   true,
		"condition": s.Condition,
		"result":    result,
	}, nil
}

func (e *Engine) executeWaitStep(ctx context.Context, s *Step) (map[string]any, error) {
	seconds, _ := toInt(s.Config["seconds"])
	if seconds > 0 {
		timer := time.NewTimer(time.Duration(seconds) * time.Second)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return map[string]any{"success": true, "waited_seconds": seconds}, nil
}

// evalCondition supports equality and inequality of a variable against a
// literal, plus bare-variable truthiness.
func evalCondition(expr string, vars map[string]any) bool {
	expr = strings.TrimSpace(expr)

	if left, right, ok := strings.Cut(expr, "!="); ok {
		return !valuesEqual(lookup(left, vars), literal(right, vars))
	}
	if left, right, ok := strings.Cut(expr, "=="); ok {
		return valuesEqual(lookup(left, vars), literal(right, vars))
	}
	return truthy(lookup(expr, vars))
}

func lookup(key string, vars map[string]any) any {
	return vars[strings.TrimSpace(key)]
}

// literal parses the right-hand side: a quoted string, bool, number, or a
// variable reference.
func literal(raw string, vars map[string]any) any {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && (raw[0] == '\'' || raw[0] == '"') && raw[len(raw)-1] == raw[0] {
		return raw[1 : len(raw)-1]
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	var f float64
	if _, err := fmt.Sscanf(raw, "%g", &f); err == nil {
		return f
	}
	return vars[raw]
}

func valuesEqual(a, b any) bool {
	// numbers compare as float64 so ints from config match yaml floats
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func truthy(v any) bool {
	switch vv := v.(type) {
	case nil:
		return false
	case bool:
		return vv
	case string:
		return vv != ""
	case int:
		return vv != 0
	case float64:
		return vv != 0
	}
	return true
}

// quoteNames renders step names as a bracketed quoted list for error text
func quoteNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
