// Package task defines the task model and the priority/dependency queue.
// Tasks are the fundamental unit of work routed to agents; they support
// hierarchical decomposition, dependency ordering, and retry with backoff.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Status of a task in the orchestration system
type Status string

const (
	StatusPending         Status = "pending"
	StatusQueued          Status = "queued"
	StatusInProgress      Status = "in_progress"
	StatusUnderReview     Status = "under_review"
	StatusNeedsCorrection Status = "needs_correction"
	StatusRetrying        Status = "retrying"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusCancelled       Status = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Priority levels for tasks
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// rank orders priorities for queue selection; lower is more urgent
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Type of task that can be processed
type Type string

const (
	TypePlanning       Type = "planning"
	TypeDevelopment    Type = "development"
	TypeTesting        Type = "testing"
	TypeSecurityReview Type = "security_review"
	TypeDocumentation  Type = "documentation"
	TypeCodeReview     Type = "code_review"
	TypeBugFix         Type = "bug_fix"
	TypeFeature        Type = "feature"
)

// Artifact is a typed record produced by an agent as part of a task result.
// The core treats Data as opaque; consumers switch on Type.
type Artifact struct {
	Type string `json:"type" yaml:"type"`
	Data any    `json:"data" yaml:"data"`
}

// Result of task execution
type Result struct {
	Success       bool           `json:"success"`
	Output        any            `json:"output,omitempty"`
	Artifacts     []Artifact     `json:"artifacts,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Retryable     bool           `json:"retryable"`
}

// DefaultMaxCorrections bounds the correction loop per task
const DefaultMaxCorrections = 3

// Task represents a unit of work in the orchestration system
type Task struct {
	ID            string
	Title         string
	Description   string
	Type          Type
	Priority      Priority
	Status        Status
	ParentID      string
	Subtasks      []string
	AssignedAgent string
	Dependencies  []string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	Retry      RetryConfig
	RetryState RetryState

	CorrectionCount int
	MaxCorrections  int

	Result   *Result
	Metadata map[string]any
}

// New creates a task with defaults: development type, medium priority, pending status
func New(title, description string) *Task {
	now := time.Now()
	return &Task{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    description,
		Type:           TypeDevelopment,
		Priority:       PriorityMedium,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		MaxCorrections: DefaultMaxCorrections,
		Metadata:       make(map[string]any),
	}
}

// CanStart reports whether every dependency is in the completed set
func (t *Task) CanStart(completed map[string]struct{}) bool {
	for _, dep := range t.Dependencies {
		if _, ok := completed[dep]; !ok {
			return false
		}
	}
	return true
}

// IsTerminal reports whether the task reached a terminal status
func (t *Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// NeedsMoreCorrections reports whether the correction counter is below its cap
func (t *Task) NeedsMoreCorrections() bool {
	return t.CorrectionCount < t.MaxCorrections
}

// UpdateStatus transitions the task and maintains timestamps. Transitions out
// of a terminal status are ignored. StartedAt is set once on the first
// in_progress transition; CompletedAt on completion.
func (t *Task) UpdateStatus(status Status) {
	if t.Status.IsTerminal() {
		return
	}
	t.Status = status
	now := time.Now()
	t.UpdatedAt = now

	switch status {
	case StatusInProgress:
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
	case StatusCompleted:
		t.CompletedAt = &now
	}
}

// ToMap converts the task to a serializable field-for-field representation
func (t *Task) ToMap() map[string]any {
	m := map[string]any{
		"id":               t.ID,
		"title":            t.Title,
		"description":      t.Description,
		"task_type":        string(t.Type),
		"priority":         string(t.Priority),
		"status":           string(t.Status),
		"parent_task_id":   t.ParentID,
		"subtasks":         append([]string(nil), t.Subtasks...),
		"assigned_agent":   t.AssignedAgent,
		"dependencies":     append([]string(nil), t.Dependencies...),
		"created_at":       t.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":       t.UpdatedAt.Format(time.RFC3339Nano),
		"correction_count": t.CorrectionCount,
		"metadata":         t.Metadata,
	}
	if t.StartedAt != nil {
		m["started_at"] = t.StartedAt.Format(time.RFC3339Nano)
	}
	if t.CompletedAt != nil {
		m["completed_at"] = t.CompletedAt.Format(time.RFC3339Nano)
	}
	return m
}
