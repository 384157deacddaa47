package model

import "time"

// MessageType discriminates who produced a message.
type MessageType string

const (
	MessageTypeUser   MessageType = "user"
	MessageTypeBot    MessageType = "bot"
	MessageTypeAgent  MessageType = "agent"
	MessageTypeSystem MessageType = "system"
)

// Rating values a client can attach to a single message.
const (
	RatingPositive = "positive"
	RatingNegative = "negative"
	RatingNeutral  = "neutral"
)

// ValidRating reports whether r is one of the accepted rating values.
func ValidRating(r string) bool {
	return r == RatingPositive || r == RatingNegative || r == RatingNeutral
}

// MaxAgentMessageLen caps a single agent message. Generous enough for
// paragraph-length support responses; guards the archive files against
// pasted dumps.
const MaxAgentMessageLen = 5000

// Message is one entry in a conversation transcript. Immutable once
// appended except Rating, which may be patched exactly once by index.
type Message struct {
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	AgentID   string      `json:"agent_id,omitempty"`
	Rating    string      `json:"rating,omitempty"`
}
