package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowReadySteps(t *testing.T) {
	t.Run("only dependency-satisfied pending steps are ready", func(t *testing.T) {
		w := New("pipeline", "")
		a := NewStep("a", StepTypeTask, nil)
		b := NewStep("b", StepTypeTask, nil).DependsOn(a.ID)
		c := NewStep("c", StepTypeTask, nil)
		w.AddStep(a)
		w.AddStep(b)
		w.AddStep(c)

		ready := w.ReadySteps(map[string]struct{}{})
		require.Len(t, ready, 2)
		assert.Equal(t, "a", ready[0].Name)
		assert.Equal(t, "c", ready[1].Name)

		ready = w.ReadySteps(map[string]struct{}{a.ID: {}})
		names := []string{}
		for _, s := range ready {
			names = append(names, s.Name)
		}
		assert.Equal(t, []string{"a", "b", "c"}, names)
	})

	t.Run("non-pending steps are skipped", func(t *testing.T) {
		w := New("pipeline", "")
		a := NewStep("a", StepTypeTask, nil)
		a.Status = StatusCompleted
		w.AddStep(a)

		assert.Empty(t, w.ReadySteps(map[string]struct{}{}))
	})
}

func TestWorkflowValidate(t *testing.T) {
	t.Run("valid DAG passes", func(t *testing.T) {
		w := New("diamond", "")
		a := NewStep("a", StepTypeTask, nil)
		b := NewStep("b", StepTypeTask, nil).DependsOn(a.ID)
		c := NewStep("c", StepTypeTask, nil).DependsOn(a.ID)
		d := NewStep("d", StepTypeTask, nil).DependsOn(b.ID, c.ID)
		w.AddStep(a)
		w.AddStep(b)
		w.AddStep(c)
		w.AddStep(d)

		assert.NoError(t, w.Validate())
	})

	t.Run("unknown dependency fails", func(t *testing.T) {
		w := New("dangling", "")
		w.AddStep(NewStep("a", StepTypeTask, nil).DependsOn("missing-id"))

		err := w.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown step")
	})

	t.Run("cycle fails", func(t *testing.T) {
		w := New("cyclic", "")
		a := NewStep("a", StepTypeTask, nil)
		b := NewStep("b", StepTypeTask, nil).DependsOn(a.ID)
		a.DependsOn(b.ID)
		w.AddStep(a)
		w.AddStep(b)

		err := w.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dependency cycle")
	})
}

func TestWorkflowLookups(t *testing.T) {
	w := New("lookups", "")
	a := NewStep("first", StepTypeTask, nil)
	w.AddStep(a)

	byID, ok := w.Step(a.ID)
	require.True(t, ok)
	assert.Equal(t, "first", byID.Name)

	byName, ok := w.StepByName("first")
	require.True(t, ok)
	assert.Equal(t, a.ID, byName.ID)

	_, ok = w.Step("nope")
	assert.False(t, ok)
	_, ok = w.StepByName("nope")
	assert.False(t, ok)
}

func TestBuiltinTemplates(t *testing.T) {
	t.Run("feature development is a valid six step DAG", func(t *testing.T) {
		w := FeatureDevelopment()
		require.NoError(t, w.Validate())
		require.Len(t, w.Steps, 6)

		doc, ok := w.StepByName("documentation")
		require.True(t, ok)
		testing_, _ := w.StepByName("testing")
		security, _ := w.StepByName("security_review")
		assert.ElementsMatch(t, []string{testing_.ID, security.ID}, doc.Dependencies)

		dev, _ := w.StepByName("development")
		assert.Equal(t, []string{dev.ID}, testing_.Dependencies)
		assert.Equal(t, []string{dev.ID}, security.Dependencies)
	})

	t.Run("bug fix is sequential", func(t *testing.T) {
		w := BugFix()
		require.NoError(t, w.Validate())
		require.Len(t, w.Steps, 3)
		assert.Equal(t, "research", w.Steps[0].Name)
		assert.Equal(t, "fix", w.Steps[1].Name)
		assert.Equal(t, "test", w.Steps[2].Name)
	})

	t.Run("code review starts with a conversation", func(t *testing.T) {
		w := CodeReview()
		require.NoError(t, w.Validate())
		require.Len(t, w.Steps, 2)
		assert.Equal(t, StepTypeConversation, w.Steps[0].Type)
	})
}
