package workflow

import (
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/clockwork-labs/orchestrator/pkg/domain/errors"
)

// ToMap converts the step to its data-only representation
func (s *Step) ToMap() map[string]any {
	m := map[string]any{
		"id":           s.ID,
		"name":         s.Name,
		"step_type":    string(s.Type),
		"config":       s.Config,
		"dependencies": append([]string(nil), s.Dependencies...),
		"status":       string(s.Status),
	}
	if s.Timeout > 0 {
		m["timeout_seconds"] = int(s.Timeout / time.Second)
	}
	if len(s.Metadata) > 0 {
		m["metadata"] = s.Metadata
	}
	if s.StartedAt != nil {
		m["started_at"] = s.StartedAt.Format(time.RFC3339Nano)
	}
	if s.CompletedAt != nil {
		m["completed_at"] = s.CompletedAt.Format(time.RFC3339Nano)
	}
	if s.Error != "" {
		m["error"] = s.Error
	}
	return m
}

// ToMap converts the workflow to its data-only representation
func (w *Workflow) ToMap() map[string]any {
	steps := make([]map[string]any, 0, len(w.Steps))
	for _, s := range w.Steps {
		steps = append(steps, s.ToMap())
	}
	m := map[string]any{
		"id":          w.ID,
		"name":        w.Name,
		"description": w.Description,
		"version":     w.Version,
		"status":      string(w.Status),
		"steps":       steps,
		"variables":   w.Variables,
		"created_at":  w.CreatedAt.Format(time.RFC3339Nano),
	}
	if w.StartedAt != nil {
		m["started_at"] = w.StartedAt.Format(time.RFC3339Nano)
	}
	if w.CompletedAt != nil {
		m["completed_at"] = w.CompletedAt.Format(time.RFC3339Nano)
	}
	return m
}

// FromMap rebuilds a workflow definition from its data-only representation.
// Execution state is not restored; all steps come back pending.
func FromMap(data map[string]any) (*Workflow, error) {
	name, ok := data["name"].(string)
	if !ok || name == "" {
		return nil, errors.New(errors.CodeMissingParameter, "workflow",
			"workflow definition requires a name", nil)
	}

	w := New(name, stringOr(data, "description", ""))
	if id := stringOr(data, "id", ""); id != "" {
		w.ID = id
	}
	if v := stringOr(data, "version", ""); v != "" {
		w.Version = v
	}
	if vars, ok := data["variables"].(map[string]any); ok {
		w.Variables = vars
	}

	var rawSteps []any
	switch vv := data["steps"].(type) {
	case []any:
		rawSteps = vv
	case []map[string]any:
		rawSteps = make([]any, len(vv))
		for i, sd := range vv {
			rawSteps[i] = sd
		}
	}
	for _, raw := range rawSteps {
		sd, ok := raw.(map[string]any)
		if !ok {
			return nil, errors.New(errors.CodeInvalidParameter, "workflow",
				"step definition must be a mapping", nil)
		}
		stepName, ok := sd["name"].(string)
		if !ok || stepName == "" {
			return nil, errors.New(errors.CodeMissingParameter, "workflow",
				"step definition requires a name", nil)
		}
		config, _ := sd["config"].(map[string]any)
		step := NewStep(stepName, StepType(stringOr(sd, "step_type", string(StepTypeTask))), config)
		if id := stringOr(sd, "id", ""); id != "" {
			step.ID = id
		} else {
			step.ID = uuid.NewString()
		}
		step.Dependencies = stringSlice(sd["dependencies"])
		if secs, ok := toInt(sd["timeout_seconds"]); ok {
			step.Timeout = time.Duration(secs) * time.Second
		}
		if md, ok := sd["metadata"].(map[string]any); ok {
			step.Metadata = md
		}
		w.AddStep(step)
	}
	return w, nil
}

// MarshalYAML serializes the workflow definition
func (w *Workflow) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(w.ToMap())
}

// UnmarshalYAML parses a workflow definition from YAML
func UnmarshalYAML(data []byte) (*Workflow, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.CodeInvalidParameter, "workflow",
			"invalid workflow YAML", err)
	}
	return FromMap(normalizeKeys(raw))
}

func stringOr(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return fallback
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// normalizeKeys converts yaml's map[any]any nesting to map[string]any so
// FromMap sees one shape regardless of the decoder.
func normalizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return normalizeKeys(vv)
	case map[any]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			if ks, ok := k.(string); ok {
				out[ks] = normalizeValue(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = normalizeValue(item)
		}
		return out
	}
	return v
}
