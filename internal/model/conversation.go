// Package model defines the domain types shared across the engine,
// archive, and HTTP layers.
package model

import (
	"strings"
	"time"
)

// ConversationState is the lifecycle state of a conversation.
type ConversationState string

const (
	// StateUnassigned: bot-served, not transferred.
	StateUnassigned ConversationState = "unassigned"
	// StateQueued: transferred, waiting for an agent.
	StateQueued ConversationState = "queued"
	// StateAssigned: a human agent is handling the conversation.
	StateAssigned ConversationState = "assigned"
	// StateCompleted: terminal. No further mutation through the live path.
	StateCompleted ConversationState = "completed"
)

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition. Completed is terminal; accepting a conversation
// that was never queued is illegal.
func (s ConversationState) CanTransitionTo(next ConversationState) bool {
	switch s {
	case StateUnassigned:
		return next == StateQueued || next == StateCompleted
	case StateQueued:
		return next == StateAssigned || next == StateCompleted
	case StateAssigned:
		return next == StateCompleted
	default:
		return false
	}
}

// Terminal reports whether the state admits no further transitions.
func (s ConversationState) Terminal() bool { return s == StateCompleted }

// ClientData identifies the person on the client side of a conversation.
// Email is stored normalized (lowercase, trimmed) and cleared when it does
// not contain '@'.
type ClientData struct {
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CollectedAt time.Time `json:"collected_at,omitempty"`
}

// TimingMetrics accumulates handoff timing for one conversation.
// Each field is write-once; TotalHumanTimeSeconds is derived at close.
type TimingMetrics struct {
	TransferTime          time.Time `json:"human_transfer_time,omitempty"`
	HumanStartTime        time.Time `json:"human_start_time,omitempty"`
	HumanEndTime          time.Time `json:"human_end_time,omitempty"`
	TotalHumanTimeSeconds float64   `json:"total_human_time_seconds"`
}

// Conversation is the central aggregate: one client session from start to
// completion, including every message exchanged and the handoff bookkeeping.
type Conversation struct {
	ID                 string                `json:"conversation_id"`
	ClientData         ClientData            `json:"client_data"`
	Messages           []Message             `json:"messages"`
	State              ConversationState     `json:"state"`
	TransferredToHuman bool                  `json:"transferred_to_human"`
	AssignedAgent      string                `json:"assigned_agent,omitempty"`
	AgentName          string                `json:"agent_name,omitempty"`
	Satisfaction       string                `json:"satisfaction,omitempty"`
	Timing             TimingMetrics         `json:"timing_metrics"`
	StartTime          time.Time             `json:"start_time"`
	EndTime            time.Time             `json:"end_time,omitempty"`
	EndedBy            string                `json:"ended_by,omitempty"`
	ClientHistory      []ConversationSummary `json:"client_history,omitempty"`
}

// UserMessageCount returns the number of user messages in the transcript.
func (c *Conversation) UserMessageCount() int {
	n := 0
	for _, m := range c.Messages {
		if m.Type == MessageTypeUser {
			n++
		}
	}
	return n
}

// FirstUserMessage returns the content of the earliest user message,
// or empty string if the client never wrote anything.
func (c *Conversation) FirstUserMessage() string {
	for _, m := range c.Messages {
		if m.Type == MessageTypeUser {
			return m.Content
		}
	}
	return ""
}

// NormalizeEmail lowercases and trims an email address. Addresses without
// an '@' are rejected as unusable for history lookups and return "".
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return ""
	}
	return email
}
