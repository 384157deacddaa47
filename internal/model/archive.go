package model

import "time"

// InteractionType marks who produced the output side of a training pair.
const (
	InteractionAI    = "ai_response"
	InteractionHuman = "human_response"
)

// TrainingPair is one (input, output) example derived from an adjacent
// user→responder message pair. Pairs feed the offline fine-tuning pipeline.
type TrainingPair struct {
	Input           string    `json:"input"`
	Output          string    `json:"output"`
	InteractionType string    `json:"interaction_type"`
	Rating          string    `json:"rating"`
	InputTimestamp  time.Time `json:"input_timestamp"`
	OutputTimestamp time.Time `json:"output_timestamp"`
	AgentID         string    `json:"agent_id,omitempty"`
	AgentName       string    `json:"agent_name,omitempty"`
}

// ArchiveMetrics are the aggregate interaction counts stored with a record.
type ArchiveMetrics struct {
	AIInteractions    int `json:"ai_interactions"`
	HumanInteractions int `json:"human_interactions"`
	TotalInteractions int `json:"total_interactions"`
}

// ArchiveRecord is the durable form of a completed conversation: one JSON
// document per conversation file, append-only, never rewritten.
type ArchiveRecord struct {
	ConversationID     string         `json:"conversation_id"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
	ClientData         ClientData     `json:"client_data"`
	TotalMessages      int            `json:"total_messages"`
	Satisfaction       string         `json:"satisfaction,omitempty"`
	TransferredToHuman bool           `json:"transferred_to_human"`
	AssignedAgent      string         `json:"assigned_agent,omitempty"`
	AgentName          string         `json:"agent_name,omitempty"`
	EndedBy            string         `json:"ended_by,omitempty"`
	Timing             TimingMetrics  `json:"timing_metrics"`
	Metrics            ArchiveMetrics `json:"metrics"`
	TrainingData       []TrainingPair `json:"training_data"`
	FullChatHistory    []Message      `json:"full_chat_history"`
}

// SummarySource tags where a history summary was reconstructed from.
// Debug/tracing aid only; never used for dedup decisions.
const (
	SourceMemory = "memory"
	SourceFile   = "file"
)

// ConversationSummary is a one-line view of a past conversation, used for
// returning-client detection and the agent-facing history digest.
type ConversationSummary struct {
	ConversationID   string    `json:"conversation_id"`
	StartTime        time.Time `json:"start_time,omitempty"`
	EndTime          time.Time `json:"end_time,omitempty"`
	Summary          string    `json:"summary"`
	Satisfaction     string    `json:"satisfaction,omitempty"`
	Transferred      bool      `json:"transferred_to_human"`
	TotalMessages    int       `json:"total_messages"`
	HumanTimeMinutes float64   `json:"human_time_minutes"`
	Source           string    `json:"source"`
}
