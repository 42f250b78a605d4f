package conversation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
)

// Manager owns all conversations and routes messages to registered agents.
// Sends into an inactive conversation or to an unregistered recipient degrade
// to a nil response rather than an error.
type Manager struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	byAgent       map[string][]string
	registry      *agent.Registry
	logger        zerolog.Logger
}

// NewManager creates a conversation manager routing through the registry
func NewManager(registry *agent.Registry, logger zerolog.Logger) *Manager {
	return &Manager{
		conversations: make(map[string]*Conversation),
		byAgent:       make(map[string][]string),
		registry:      registry,
		logger:        logger.With().Str("component", "conversation_manager").Logger(),
	}
}

// Create starts a new conversation with the given participants
func (m *Manager) Create(topic string, participants []string, mode Mode, taskID string) *Conversation {
	conv := New(topic, participants, mode, taskID)

	m.mu.Lock()
	m.conversations[conv.ID] = conv
	for _, p := range conv.Participants {
		m.track(p, conv.ID)
	}
	m.mu.Unlock()

	m.logger.Debug().Str("conversation_id", conv.ID).Str("topic", topic).Msg("conversation created")
	return conv
}

// Get returns the conversation with the given id
func (m *Manager) Get(id string) (*Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	return conv, ok
}

// AddParticipant adds an agent to an existing conversation
func (m *Manager) AddParticipant(id, agentName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return false
	}
	conv.AddParticipant(agentName)
	m.track(agentName, id)
	return true
}

func (m *Manager) track(agentName, conversationID string) {
	for _, cid := range m.byAgent[agentName] {
		if cid == conversationID {
			return
		}
	}
	m.byAgent[agentName] = append(m.byAgent[agentName], conversationID)
}

// Send routes a message to the recipient agent and appends the exchange as a
// turn. A nil response means the conversation was inactive or the recipient
// unknown.
func (m *Manager) Send(ctx context.Context, id, sender, recipient, content string) (*agent.Response, error) {
	m.mu.Lock()
	conv, ok := m.conversations[id]
	if !ok || !conv.IsActive() {
		m.mu.Unlock()
		return nil, nil
	}
	m.mu.Unlock()

	recipientAgent, ok := m.registry.Get(recipient)
	if !ok {
		return nil, nil
	}

	msg := agent.NewMessage(sender, recipient, content)
	msg.Metadata["conversation_id"] = id

	resp, err := recipientAgent.ProcessMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	conv.AddTurn(Turn{
		Speaker:   sender,
		Message:   msg,
		Response:  &resp,
		Timestamp: msg.Timestamp,
	})
	m.mu.Unlock()

	return &resp, nil
}

// Broadcast sends the content to every participant except the sender and
// collects their responses. An inactive or unknown conversation yields an
// empty list.
func (m *Manager) Broadcast(ctx context.Context, id, sender, content string) ([]agent.Response, error) {
	m.mu.Lock()
	conv, ok := m.conversations[id]
	if !ok || !conv.IsActive() {
		m.mu.Unlock()
		return nil, nil
	}
	participants := append([]string(nil), conv.Participants...)
	m.mu.Unlock()

	var responses []agent.Response
	for _, p := range participants {
		if p == sender {
			continue
		}
		resp, err := m.Send(ctx, id, sender, p, content)
		if err != nil {
			return responses, err
		}
		if resp != nil {
			responses = append(responses, *resp)
		}
	}
	return responses, nil
}

// End completes the conversation with the given id
func (m *Manager) End(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv, ok := m.conversations[id]; ok {
		conv.Complete()
	}
}

// ForAgent returns the conversations an agent participates in
func (m *Manager) ForAgent(agentName string) []*Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Conversation
	for _, cid := range m.byAgent[agentName] {
		if conv, ok := m.conversations[cid]; ok {
			out = append(out, conv)
		}
	}
	return out
}

// Active returns all conversations still accepting turns
func (m *Manager) Active() []*Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Conversation
	for _, conv := range m.conversations {
		if conv.Status == StatusActive {
			out = append(out, conv)
		}
	}
	return out
}
