package task

import (
	"sync"
	"time"

	"github.com/clockwork-labs/orchestrator/pkg/domain/errors"
)

// Queue is a priority/dependency queue for tasks. Selection is pull-based:
// callers decide when to pull via PopNext. All mutations are serialized
// behind the queue mutex.
type Queue struct {
	mu        sync.Mutex
	tasks     map[string]*Task
	completed map[string]struct{}
	now       func() time.Time
}

// NewQueue creates an empty task queue
func NewQueue() *Queue {
	return &Queue{
		tasks:     make(map[string]*Task),
		completed: make(map[string]struct{}),
		now:       time.Now,
	}
}

// Add inserts a task. Dependency cycles among known tasks are a configuration
// error and are rejected eagerly.
func (q *Queue) Add(t *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.checkCycle(t); err != nil {
		return err
	}
	q.tasks[t.ID] = t
	return nil
}

// checkCycle walks the dependency graph from the new task. Dependencies on
// tasks not yet submitted are allowed; only cycles among known tasks fail.
func (q *Queue) checkCycle(t *Task) error {
	visited := map[string]bool{}
	var walk func(id string) bool
	walk = func(id string) bool {
		if id == t.ID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		dep, ok := q.tasks[id]
		if !ok {
			return false
		}
		for _, next := range dep.Dependencies {
			if walk(next) {
				return true
			}
		}
		return false
	}
	for _, dep := range t.Dependencies {
		if walk(dep) {
			return errors.Newf(errors.CodeDependencyCycle, "task",
				"task %q introduces a dependency cycle", t.ID)
		}
	}
	return nil
}

// Get returns a task by ID, or nil if absent
func (q *Queue) Get(id string) *Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks[id]
}

// PopNext returns the highest-priority pending task whose dependencies are all
// completed, breaking ties by earliest creation time. It returns nil when no
// task is ready. The task status is left untouched; the caller advances it.
func (q *Queue) PopNext() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *Task
	for _, t := range q.tasks {
		if t.Status != StatusPending || !t.CanStart(q.completed) {
			continue
		}
		if best == nil {
			best = t
			continue
		}
		if t.Priority.rank() < best.Priority.rank() ||
			(t.Priority.rank() == best.Priority.rank() && t.CreatedAt.Before(best.CreatedAt)) {
			best = t
		}
	}
	return best
}

// MarkCompleted transitions a task to completed and adds it to the completed set
func (q *Queue) MarkCompleted(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return
	}
	t.UpdateStatus(StatusCompleted)
	q.completed[id] = struct{}{}
}

// MarkFailed records a failure against the task and consults its retry policy.
// It returns true when a retry was scheduled, false when the failure is
// terminal. Cancelled (or otherwise terminal) tasks never retry.
func (q *Queue) MarkFailed(id string, errText string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok || t.Status.IsTerminal() {
		return false
	}

	now := q.now()
	t.RetryState.recordFailure(errText, now)
	t.UpdatedAt = now

	if t.RetryState.Attempt <= t.Retry.MaxRetries && t.Retry.IsRetryable(errText) {
		delay := t.Retry.Delay(t.RetryState.Attempt)
		next := now.Add(delay)
		t.RetryState.NextRetryAt = &next
		t.UpdateStatus(StatusRetrying)
		return true
	}

	t.RetryState.NextRetryAt = nil
	t.UpdateStatus(StatusFailed)
	t.Result = &Result{
		Success:      false,
		ErrorMessage: errText,
		Metadata: map[string]any{
			"retry_attempts": t.RetryState.Attempt,
			"retry_history":  t.RetryState.HistoryMaps(),
		},
	}
	return false
}

// FailTerminal marks the task failed without consulting its retry policy.
// Routing failures use this path: a task no agent can handle must not retry.
func (q *Queue) FailTerminal(id string, errText string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok || t.Status.IsTerminal() {
		return
	}
	t.UpdatedAt = q.now()
	t.RetryState.NextRetryAt = nil
	t.UpdateStatus(StatusFailed)
	t.Result = &Result{
		Success:      false,
		ErrorMessage: errText,
	}
}

// ReadyForRetry returns every retrying task whose next retry time has passed
func (q *Queue) ReadyForRetry() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var ready []*Task
	for _, t := range q.tasks {
		if t.Status == StatusRetrying && t.RetryState.NextRetryAt != nil &&
			!t.RetryState.NextRetryAt.After(now) {
			ready = append(ready, t)
		}
	}
	return ready
}

// ProcessRetries resets due retrying tasks to pending and clears their retry
// deadline, returning the affected task IDs.
func (q *Queue) ProcessRetries() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var ids []string
	for _, t := range q.tasks {
		if t.Status == StatusRetrying && t.RetryState.NextRetryAt != nil &&
			!t.RetryState.NextRetryAt.After(now) {
			t.RetryState.NextRetryAt = nil
			t.UpdateStatus(StatusPending)
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Cancel transitions a non-terminal task to cancelled
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok || t.Status.IsTerminal() {
		return false
	}
	t.RetryState.NextRetryAt = nil
	t.UpdateStatus(StatusCancelled)
	return true
}

// TasksByStatus returns all tasks with the given status
func (q *Queue) TasksByStatus(status Status) []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*Task
	for _, t := range q.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// All returns every task in the queue
func (q *Queue) All() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		out = append(out, t)
	}
	return out
}

// Len returns the number of tasks in the queue
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
