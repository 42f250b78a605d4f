package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

// stubAgent is a minimal Agent for registry tests
type stubAgent struct {
	name        string
	caps        []Capability
	types       map[task.Type]struct{}
	initErr     error
	initialized bool
	shutdown    bool
}

func newStubAgent(name string, caps []Capability, types ...task.Type) *stubAgent {
	handled := make(map[task.Type]struct{}, len(types))
	for _, tt := range types {
		handled[tt] = struct{}{}
	}
	return &stubAgent{name: name, caps: caps, types: handled}
}

func (s *stubAgent) Name() string               { return s.name }
func (s *stubAgent) Description() string        { return "stub" }
func (s *stubAgent) Capabilities() []Capability { return s.caps }

func (s *stubAgent) CanHandle(taskType task.Type) bool {
	_, ok := s.types[taskType]
	return ok
}

func (s *stubAgent) ProcessMessage(_ context.Context, msg Message) (Response, error) {
	return Response{AgentName: s.name, Content: msg.Content, Success: true}, nil
}

func (s *stubAgent) HandleTask(_ context.Context, t *task.Task) (Response, error) {
	return Response{AgentName: s.name, Content: "done: " + t.Title, Success: true}, nil
}

func (s *stubAgent) Initialize(_ context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}
	s.initialized = true
	return nil
}

func (s *stubAgent) Shutdown(_ context.Context) error {
	s.shutdown = true
	return nil
}

func TestRegistryRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and initializes", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		a := newStubAgent("dev", []Capability{CapabilityCoding}, task.TypeDevelopment)

		require.NoError(t, r.Register(ctx, a))
		assert.True(t, a.initialized)
		assert.Equal(t, 1, r.Count())

		got, ok := r.Get("dev")
		require.True(t, ok)
		assert.Equal(t, "dev", got.Name())
	})

	t.Run("duplicate name fails", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		require.NoError(t, r.Register(ctx, newStubAgent("dev", nil)))

		err := r.Register(ctx, newStubAgent("dev", nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("initialize failure rolls back registration", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		a := newStubAgent("broken", []Capability{CapabilityCoding})
		a.initErr = errors.New("no backend")

		err := r.Register(ctx, a)
		require.Error(t, err)
		assert.Equal(t, 0, r.Count())
		assert.Empty(t, r.ByCapability(CapabilityCoding))
	})
}

func TestRegistryUnregister(t *testing.T) {
	ctx := context.Background()

	t.Run("removes agent and runs shutdown", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		a := newStubAgent("dev", []Capability{CapabilityCoding}, task.TypeDevelopment)
		require.NoError(t, r.Register(ctx, a))

		require.NoError(t, r.Unregister(ctx, "dev"))
		assert.True(t, a.shutdown)
		assert.Equal(t, 0, r.Count())
		assert.Empty(t, r.ByCapability(CapabilityCoding))
	})

	t.Run("unknown agent fails", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		err := r.Unregister(ctx, "ghost")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not registered")
	})
}

func TestRegistryForTask(t *testing.T) {
	ctx := context.Background()

	t.Run("selects by capability in registration order", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		dev := newStubAgent("dev", []Capability{CapabilityCoding}, task.TypeDevelopment, task.TypeBugFix)
		qa := newStubAgent("qa", []Capability{CapabilityTesting}, task.TypeTesting, task.TypeBugFix)
		require.NoError(t, r.Register(ctx, dev))
		require.NoError(t, r.Register(ctx, qa))

		tk := task.New("fix it", "")
		tk.Type = task.TypeBugFix

		candidates := r.ForTask(tk)
		require.Len(t, candidates, 2)
		assert.Equal(t, "dev", candidates[0].Name())
		assert.Equal(t, "qa", candidates[1].Name())
	})

	t.Run("filters agents that cannot handle the type", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		// Has the coding capability but only accepts code review tasks.
		reviewer := newStubAgent("reviewer", []Capability{CapabilityCoding}, task.TypeCodeReview)
		require.NoError(t, r.Register(ctx, reviewer))

		tk := task.New("build", "")
		tk.Type = task.TypeDevelopment
		assert.Empty(t, r.ForTask(tk))
	})

	t.Run("deduplicates agents with multiple matching capabilities", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		multi := newStubAgent("multi",
			[]Capability{CapabilityPlanning, CapabilityCoding}, task.TypeFeature)
		require.NoError(t, r.Register(ctx, multi))

		tk := task.New("ship feature", "")
		tk.Type = task.TypeFeature
		assert.Len(t, r.ForTask(tk), 1)
	})
}

func TestRegistryNamesAndEach(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(zerolog.Nop())
	require.NoError(t, r.Register(ctx, newStubAgent("a", nil)))
	require.NoError(t, r.Register(ctx, newStubAgent("b", nil)))
	require.NoError(t, r.Register(ctx, newStubAgent("c", nil)))

	assert.Equal(t, []string{"a", "b", "c"}, r.Names())

	var visited []string
	r.Each(func(a Agent) { visited = append(visited, a.Name()) })
	assert.Equal(t, []string{"a", "b", "c"}, visited)
}
