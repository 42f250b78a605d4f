package agent

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/errors"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

// Registry holds registered agents and an index from capability to agent
// names. Registration order is preserved so selection is deterministic.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	order  []string
	byCap  map[Capability][]string
	logger zerolog.Logger
}

// NewRegistry creates an empty agent registry
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		agents: make(map[string]Agent),
		byCap:  make(map[Capability][]string),
		logger: logger.With().Str("component", "agent_registry").Logger(),
	}
}

// Register adds an agent, indexes its capabilities, and runs its Initialize
// hook. Registering a duplicate name is an error.
func (r *Registry) Register(ctx context.Context, a Agent) error {
	r.mu.Lock()
	if _, exists := r.agents[a.Name()]; exists {
		r.mu.Unlock()
		return errors.Newf(errors.CodeAlreadyExists, "agent",
			"agent %q already registered", a.Name())
	}
	r.agents[a.Name()] = a
	r.order = append(r.order, a.Name())
	for _, cap := range a.Capabilities() {
		r.byCap[cap] = append(r.byCap[cap], a.Name())
	}
	r.mu.Unlock()

	if err := a.Initialize(ctx); err != nil {
		r.remove(a.Name())
		return errors.New(errors.CodeOperationFailed, "agent",
			"agent initialization failed", err)
	}

	r.logger.Debug().Str("agent", a.Name()).Msg("agent registered")
	return nil
}

// Unregister removes an agent from the registry and index and runs its
// Shutdown hook.
func (r *Registry) Unregister(ctx context.Context, name string) error {
	r.mu.RLock()
	a, ok := r.agents[name]
	r.mu.RUnlock()
	if !ok {
		return errors.Newf(errors.CodeAgentNotFound, "agent",
			"agent %q is not registered", name)
	}

	r.remove(name)

	if err := a.Shutdown(ctx); err != nil {
		return errors.New(errors.CodeOperationFailed, "agent",
			"agent shutdown failed", err)
	}
	r.logger.Debug().Str("agent", name).Msg("agent unregistered")
	return nil
}

func (r *Registry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[name]
	if !ok {
		return
	}
	delete(r.agents, name)
	r.order = removeString(r.order, name)
	for _, cap := range a.Capabilities() {
		r.byCap[cap] = removeString(r.byCap[cap], name)
	}
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// Get returns the named agent
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// ByCapability returns agents registered under the capability, in
// registration order.
func (r *Registry) ByCapability(cap Capability) []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.byCap[cap]
	out := make([]Agent, 0, len(names))
	for _, name := range names {
		if a, ok := r.agents[name]; ok {
			out = append(out, a)
		}
	}
	return out
}

// ForTask returns agents able to handle the task's type: agents registered
// under any required capability, de-duplicated preserving insertion order,
// filtered by CanHandle.
func (r *Registry) ForTask(t *task.Task) []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []Agent
	for _, cap := range CapabilitiesForType(t.Type) {
		for _, name := range r.byCap[cap] {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			a, ok := r.agents[name]
			if ok && a.CanHandle(t.Type) {
				out = append(out, a)
			}
		}
	}
	return out
}

// Names returns agent names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of registered agents
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Each calls fn for every registered agent in registration order
func (r *Registry) Each(fn func(Agent)) {
	r.mu.RLock()
	agents := make([]Agent, 0, len(r.order))
	for _, name := range r.order {
		agents = append(agents, r.agents[name])
	}
	r.mu.RUnlock()

	for _, a := range agents {
		fn(a)
	}
}
