// Package workflow defines dependency-ordered multi-step workflows and the
// engine that executes them with bounded parallelism.
package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/clockwork-labs/orchestrator/pkg/domain/errors"
)

// Status of a workflow or a step
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// StepType selects the dispatch behavior for a step
type StepType string

const (
	StepTypeTask         StepType = "task"
	StepTypeAgentAction  StepType = "agent_action"
	StepTypeConversation StepType = "conversation"
	StepTypeCondition    StepType = "condition"
	StepTypeParallel     StepType = "parallel"
	StepTypeLoop         StepType = "loop"
	StepTypeWait         StepType = "wait"
	StepTypeApproval     StepType = "approval"
)

// Step is a node in a workflow. Dependencies reference step ids; a step runs
// only after every dependency has completed.
type Step struct {
	ID           string
	Name         string
	Type         StepType
	Config       map[string]any
	Dependencies []string
	Timeout      time.Duration
	RetryCount   int
	MaxRetries   int
	OnFailure    string
	Condition    string
	Metadata     map[string]any

	// execution state, owned by the engine once Execute starts
	Status      Status
	StartedAt   *time.Time
	CompletedAt *time.Time
	Result      map[string]any
	Error       string
}

// NewStep creates a pending step of the given type
func NewStep(name string, stepType StepType, config map[string]any) *Step {
	if config == nil {
		config = make(map[string]any)
	}
	return &Step{
		ID:         uuid.NewString(),
		Name:       name,
		Type:       stepType,
		Config:     config,
		MaxRetries: 3,
		Metadata:   make(map[string]any),
		Status:     StatusPending,
	}
}

// DependsOn appends dependency step ids and returns the step for chaining
func (s *Step) DependsOn(ids ...string) *Step {
	s.Dependencies = append(s.Dependencies, ids...)
	return s
}

// Workflow is a named DAG of steps with workflow-level variables
type Workflow struct {
	ID          string
	Name        string
	Description string
	Version     string
	Status      Status
	Steps       []*Step
	Variables   map[string]any
	Metadata    map[string]any
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// New creates an empty pending workflow
func New(name, description string) *Workflow {
	return &Workflow{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Version:     "1.0.0",
		Status:      StatusPending,
		Variables:   make(map[string]any),
		Metadata:    make(map[string]any),
		CreatedAt:   time.Now(),
	}
}

// AddStep appends a step to the workflow
func (w *Workflow) AddStep(step *Step) {
	w.Steps = append(w.Steps, step)
}

// Step returns the step with the given id
func (w *Workflow) Step(id string) (*Step, bool) {
	for _, s := range w.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// StepByName returns the first step with the given name
func (w *Workflow) StepByName(name string) (*Step, bool) {
	for _, s := range w.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// ReadySteps returns every pending step whose dependencies are all in the
// completed set, in definition order.
func (w *Workflow) ReadySteps(completed map[string]struct{}) []*Step {
	var ready []*Step
	for _, s := range w.Steps {
		if s.Status != StatusPending {
			continue
		}
		ok := true
		for _, dep := range s.Dependencies {
			if _, done := completed[dep]; !done {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, s)
		}
	}
	return ready
}

// Validate checks that every dependency references a known step and that the
// dependency graph is acyclic.
func (w *Workflow) Validate() error {
	ids := make(map[string]*Step, len(w.Steps))
	for _, s := range w.Steps {
		ids[s.ID] = s
	}
	for _, s := range w.Steps {
		for _, dep := range s.Dependencies {
			if _, ok := ids[dep]; !ok {
				return errors.Newf(errors.CodeDependencyMissing, "workflow",
					"step %q depends on unknown step %q", s.Name, dep)
			}
		}
	}

	// Kahn's algorithm; leftover nodes mean a cycle
	indegree := make(map[string]int, len(w.Steps))
	dependents := make(map[string][]string, len(w.Steps))
	for _, s := range w.Steps {
		indegree[s.ID] += 0
		for _, dep := range s.Dependencies {
			indegree[s.ID]++
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	var frontier []string
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}
	visited := 0
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		visited++
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				frontier = append(frontier, next)
			}
		}
	}
	if visited != len(w.Steps) {
		return errors.Newf(errors.CodeDependencyCycle, "workflow",
			"workflow %q has a dependency cycle", w.Name)
	}
	return nil
}
