package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowToMapFromMap(t *testing.T) {
	t.Run("definition round-trips", func(t *testing.T) {
		w := New("release", "cut a release")
		build := NewStep("build", StepTypeTask, map[string]any{"agent": "DevAgent"})
		build.Timeout = 30 * time.Second
		verify := NewStep("verify", StepTypeTask, map[string]any{"agent": "QAAgent"}).DependsOn(build.ID)
		w.AddStep(build)
		w.AddStep(verify)
		w.Variables["channel"] = "stable"

		restored, err := FromMap(w.ToMap())
		require.NoError(t, err)

		assert.Equal(t, w.ID, restored.ID)
		assert.Equal(t, "release", restored.Name)
		assert.Equal(t, "cut a release", restored.Description)
		assert.Equal(t, "1.0.0", restored.Version)
		assert.Equal(t, "stable", restored.Variables["channel"])
		require.Len(t, restored.Steps, 2)

		rb := restored.Steps[0]
		assert.Equal(t, build.ID, rb.ID)
		assert.Equal(t, StepTypeTask, rb.Type)
		assert.Equal(t, 30*time.Second, rb.Timeout)
		assert.Equal(t, "DevAgent", rb.Config["agent"])

		rv := restored.Steps[1]
		assert.Equal(t, []string{build.ID}, rv.Dependencies)
		require.NoError(t, restored.Validate())
	})

	t.Run("execution state is not restored", func(t *testing.T) {
		w := New("ran", "")
		s := NewStep("only", StepTypeTask, nil)
		s.Status = StatusFailed
		s.Error = "boom"
		w.AddStep(s)
		w.Status = StatusFailed

		restored, err := FromMap(w.ToMap())
		require.NoError(t, err)
		assert.Equal(t, StatusPending, restored.Status)
		assert.Equal(t, StatusPending, restored.Steps[0].Status)
		assert.Empty(t, restored.Steps[0].Error)
	})

	t.Run("missing workflow name fails", func(t *testing.T) {
		_, err := FromMap(map[string]any{"steps": []any{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires a name")
	})

	t.Run("missing step name fails", func(t *testing.T) {
		_, err := FromMap(map[string]any{
			"name":  "bad",
			"steps": []any{map[string]any{"step_type": "task"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "step definition requires a name")
	})
}

func TestWorkflowYAML(t *testing.T) {
	t.Run("marshal then unmarshal preserves the definition", func(t *testing.T) {
		w := FeatureDevelopment()
		data, err := w.MarshalYAML()
		require.NoError(t, err)

		restored, err := UnmarshalYAML(data)
		require.NoError(t, err)
		require.Len(t, restored.Steps, 6)
		require.NoError(t, restored.Validate())

		doc, ok := restored.StepByName("documentation")
		require.True(t, ok)
		assert.Len(t, doc.Dependencies, 2)
	})

	t.Run("parses a hand-written definition", func(t *testing.T) {
		doc := []byte(`
name: hotfix
description: patch production
steps:
  - id: fix
    name: fix
    step_type: task
    config:
      agent: DevAgent
      task_type: bug_fix
  - id: verify
    name: verify
    step_type: task
    timeout_seconds: 120
    dependencies: [fix]
    config:
      agent: QAAgent
`)
		w, err := UnmarshalYAML(doc)
		require.NoError(t, err)
		assert.Equal(t, "hotfix", w.Name)
		require.Len(t, w.Steps, 2)
		assert.Equal(t, "bug_fix", w.Steps[0].Config["task_type"])
		assert.Equal(t, 2*time.Minute, w.Steps[1].Timeout)
		assert.Equal(t, []string{"fix"}, w.Steps[1].Dependencies)
		require.NoError(t, w.Validate())
	})

	t.Run("invalid yaml fails", func(t *testing.T) {
		_, err := UnmarshalYAML([]byte("{{nope"))
		require.Error(t, err)
	})
}
