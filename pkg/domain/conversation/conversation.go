// Package conversation manages multi-agent message exchange with bounded
// transcripts.
package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
)

// Status of a conversation
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Mode governs how turns are routed between participants
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeRoundRobin Mode = "round_robin"
	ModeDynamic    Mode = "dynamic"
	ModeBroadcast  Mode = "broadcast"
)

// DefaultMaxTurns bounds a conversation's transcript
const DefaultMaxTurns = 50

// Turn is a single exchange in a conversation
type Turn struct {
	Speaker   string
	Message   agent.Message
	Response  *agent.Response
	Timestamp time.Time
}

// Conversation is an ordered transcript of turns between named agents on a
// single topic. Reaching MaxTurns forces the status to completed.
type Conversation struct {
	ID           string
	Topic        string
	Participants []string
	Mode         Mode
	Status       Status
	Turns        []Turn
	TaskID       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Metadata     map[string]any
	MaxTurns     int
}

// New creates an active conversation
func New(topic string, participants []string, mode Mode, taskID string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:           uuid.NewString(),
		Topic:        topic,
		Participants: append([]string(nil), participants...),
		Mode:         mode,
		Status:       StatusActive,
		TaskID:       taskID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     make(map[string]any),
		MaxTurns:     DefaultMaxTurns,
	}
}

// AddParticipant appends a participant if not already present
func (c *Conversation) AddParticipant(name string) {
	for _, p := range c.Participants {
		if p == name {
			return
		}
	}
	c.Participants = append(c.Participants, name)
	c.UpdatedAt = time.Now()
}

// RemoveParticipant removes a participant by name
func (c *Conversation) RemoveParticipant(name string) {
	for i, p := range c.Participants {
		if p == name {
			c.Participants = append(c.Participants[:i], c.Participants[i+1:]...)
			c.UpdatedAt = time.Now()
			return
		}
	}
}

// AddTurn appends a turn; hitting the turn cap completes the conversation
func (c *Conversation) AddTurn(turn Turn) {
	c.Turns = append(c.Turns, turn)
	c.UpdatedAt = time.Now()
	if len(c.Turns) >= c.MaxTurns {
		c.Status = StatusCompleted
	}
}

// History returns the last n turns, or all turns when n <= 0
func (c *Conversation) History(n int) []Turn {
	if n <= 0 || n >= len(c.Turns) {
		return append([]Turn(nil), c.Turns...)
	}
	return append([]Turn(nil), c.Turns[len(c.Turns)-n:]...)
}

// IsActive reports whether the conversation accepts new turns
func (c *Conversation) IsActive() bool {
	return c.Status == StatusActive
}

// Complete marks the conversation completed
func (c *Conversation) Complete() {
	c.Status = StatusCompleted
	c.UpdatedAt = time.Now()
}

// ContextFor builds the context map handed to an agent joining the exchange
func (c *Conversation) ContextFor(agentName string) map[string]any {
	lastSpeaker := ""
	if len(c.Turns) > 0 {
		lastSpeaker = c.Turns[len(c.Turns)-1].Speaker
	}
	return map[string]any{
		"conversation_id": c.ID,
		"topic":           c.Topic,
		"participants":    append([]string(nil), c.Participants...),
		"turn_count":      len(c.Turns),
		"last_speaker":    lastSpeaker,
		"task_id":         c.TaskID,
		"history_summary": c.summarizeHistory(),
	}
}

func (c *Conversation) summarizeHistory() string {
	if len(c.Turns) == 0 {
		return "No conversation history."
	}
	var parts []string
	for _, turn := range c.History(5) {
		content := turn.Message.Content
		if len(content) > 100 {
			content = content[:100] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s: %s", turn.Speaker, content))
	}
	return strings.Join(parts, "\n")
}
