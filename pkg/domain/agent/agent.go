// Package agent defines the agent contract and the capability-indexed
// registry used to route tasks to agents.
package agent

import (
	"context"
	"time"

	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

// Capability is a tag describing what an agent can do
type Capability string

const (
	CapabilityPlanning          Capability = "planning"
	CapabilityCoding            Capability = "coding"
	CapabilityTesting           Capability = "testing"
	CapabilitySecurityAnalysis  Capability = "security_analysis"
	CapabilityDocumentation     Capability = "documentation"
	CapabilityCodeReview        Capability = "code_review"
	CapabilityTaskDecomposition Capability = "task_decomposition"
	CapabilityEvaluation        Capability = "evaluation"
)

// Message is the structure exchanged between agents
type Message struct {
	Sender        string
	Recipient     string
	Content       string
	MessageType   string
	Metadata      map[string]any
	Timestamp     time.Time
	CorrelationID string
}

// NewMessage builds a text message with the current timestamp
func NewMessage(sender, recipient, content string) Message {
	return Message{
		Sender:      sender,
		Recipient:   recipient,
		Content:     content,
		MessageType: "text",
		Metadata:    make(map[string]any),
		Timestamp:   time.Now(),
	}
}

// Response is an agent's reply to a message or task
type Response struct {
	AgentName        string
	Content          string
	Success          bool
	Artifacts        []task.Artifact
	Metadata         map[string]any
	Timestamp        time.Time
	NeedsCorrection  bool
	CorrectionReason string
}

// Agent is the contract every orchestrator agent implements. Implementations
// must be re-entrant across different tasks; the dispatcher guarantees at most
// one HandleTask per (agent, task) pair in flight.
type Agent interface {
	Name() string
	Description() string
	Capabilities() []Capability

	// CanHandle reports whether the agent accepts tasks of the given type
	CanHandle(taskType task.Type) bool

	// ProcessMessage handles a conversational message
	ProcessMessage(ctx context.Context, msg Message) (Response, error)

	// HandleTask executes an assigned task
	HandleTask(ctx context.Context, t *task.Task) (Response, error)

	// Initialize runs once when the agent is registered
	Initialize(ctx context.Context) error

	// Shutdown runs once when the agent is unregistered
	Shutdown(ctx context.Context) error
}

// capabilitiesByType maps each task type to the capabilities that qualify an
// agent to handle it.
var capabilitiesByType = map[task.Type][]Capability{
	task.TypePlanning:       {CapabilityPlanning, CapabilityTaskDecomposition},
	task.TypeDevelopment:    {CapabilityCoding},
	task.TypeTesting:        {CapabilityTesting},
	task.TypeSecurityReview: {CapabilitySecurityAnalysis},
	task.TypeDocumentation:  {CapabilityDocumentation},
	task.TypeCodeReview:     {CapabilityCodeReview, CapabilityEvaluation},
	task.TypeBugFix:         {CapabilityCoding, CapabilityTesting},
	task.TypeFeature:        {CapabilityPlanning, CapabilityCoding},
}

// CapabilitiesForType returns the capabilities required for a task type
func CapabilitiesForType(t task.Type) []Capability {
	return capabilitiesByType[t]
}
