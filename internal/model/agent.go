package model

import "time"

// AgentStatus is the presence state of a human support agent.
type AgentStatus string

const (
	AgentAvailable AgentStatus = "available"
	AgentBusy      AgentStatus = "busy"
)

// Agent is the presence and capacity record for one human agent.
// ActiveConversations increments on accept and decrements on end; when it
// reaches zero the agent flips back to available. Records are never deleted.
type Agent struct {
	ID                  string      `json:"agent_id"`
	Name                string      `json:"agent_name"`
	Status              AgentStatus `json:"status"`
	LoginTime           time.Time   `json:"login_time"`
	ActiveConversations int         `json:"active_conversations"`
}

// QueueEntry is the projection of a conversation waiting for an agent.
// It is created on transfer and destroyed on accept; a conversation
// appears at most once in the queue.
type QueueEntry struct {
	ConversationID string    `json:"conversation_id"`
	ClientName     string    `json:"client_name,omitempty"`
	ClientEmail    string    `json:"client_email,omitempty"`
	Returning      bool      `json:"returning_client"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}
