package model

import "time"

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// StartChatRequest is the request body for POST /chat/start.
type StartChatRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// StartChatResult is the response for POST /chat/start.
type StartChatResult struct {
	ConversationID  string `json:"conversation_id"`
	Message         string `json:"message"`
	ReturningClient bool   `json:"returning_client"`
}

// ChatMessageRequest is the request body for POST /chat/message.
type ChatMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// ChatMessageResult is the response for POST /chat/message.
// QueuePosition is only meaningful while the conversation waits in the
// handoff queue; it is a live recount, not a stable ticket number.
type ChatMessageResult struct {
	Response           string   `json:"response"`
	Type               string   `json:"type"`
	Suggestions        []string `json:"suggestions,omitempty"`
	ShowTransferOption bool     `json:"show_transfer_option,omitempty"`
	QueuePosition      int      `json:"queue_position,omitempty"`
}

// TransferRequest is the request body for POST /chat/transfer.
type TransferRequest struct {
	ConversationID string `json:"conversation_id"`
}

// TransferResult is the response for POST /chat/transfer.
type TransferResult struct {
	Response      string `json:"response"`
	QueuePosition int    `json:"queue_position"`
}

// RateMessageRequest is the request body for POST /chat/rate.
type RateMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	MessageIndex   int    `json:"message_index"`
	Rating         string `json:"rating"`
}

// EndChatRequest is the request body for POST /chat/end.
type EndChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Satisfaction   string `json:"satisfaction,omitempty"`
}

// EndChatResult is the response for POST /chat/end and the admin close.
type EndChatResult struct {
	HumanTimeMinutes float64        `json:"human_time_minutes"`
	Metrics          ArchiveMetrics `json:"metrics"`
	Archived         bool           `json:"archived"`
	ArchiveFile      string         `json:"archive_file,omitempty"`
}

// PollResult is the response for GET /chat/poll/{conversation_id}.
type PollResult struct {
	Messages          []Message `json:"new_messages"`
	ConversationEnded bool      `json:"conversation_ended"`
}

// AgentLoginRequest is the request body for POST /admin/agent_login.
type AgentLoginRequest struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

// AcceptRequest is the request body for POST /admin/accept.
type AcceptRequest struct {
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
	AgentName      string `json:"agent_name"`
}

// AcceptResult is the response for POST /admin/accept.
type AcceptResult struct {
	ConversationID string                `json:"conversation_id"`
	AgentName      string                `json:"agent_name"`
	AgentStartTime time.Time             `json:"agent_start_time"`
	ClientHistory  []ConversationSummary `json:"client_history,omitempty"`
}

// AgentMessageRequest is the request body for POST /admin/send_message.
type AgentMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
	Message        string `json:"message"`
	Type           string `json:"type,omitempty"`
}

// EndConversationRequest is the request body for POST /admin/end_conversation.
type EndConversationRequest struct {
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
}

// QueueEntryView is a queue entry enriched with the formatted waiting time,
// computed at read time.
type QueueEntryView struct {
	QueueEntry
	Waiting string `json:"waiting"`
}

// ActiveConversationView describes an assigned, in-progress conversation
// in the admin queue snapshot.
type ActiveConversationView struct {
	ConversationID string    `json:"conversation_id"`
	AgentID        string    `json:"agent_id"`
	AgentName      string    `json:"agent_name"`
	ClientName     string    `json:"client_name,omitempty"`
	StartedAt      time.Time `json:"started_at"`
}

// QueueSnapshot is the response for GET /admin/queue.
type QueueSnapshot struct {
	Waiting      []QueueEntryView         `json:"waiting"`
	Active       []ActiveConversationView `json:"active"`
	TotalWaiting int                      `json:"total_waiting"`
}

// ClientView is one entry in the admin client listing.
type ClientView struct {
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email"`
	Conversations int       `json:"conversations"`
	LastSeen      time.Time `json:"last_seen"`
}

// Stats is the response for GET /admin/stats.
type Stats struct {
	TotalConversations  int `json:"total_conversations"`
	ActiveConversations int `json:"active_conversations"`
	CompletedToday      int `json:"completed_today"`
	Transferred         int `json:"transferred_to_human"`
	Queued              int `json:"queued"`
	AgentsOnline        int `json:"agents_online"`
}

// ConversationTimeMetric is one row in GET /admin/time_metrics.
type ConversationTimeMetric struct {
	ConversationID   string  `json:"conversation_id"`
	AgentName        string  `json:"agent_name,omitempty"`
	HumanTimeSeconds float64 `json:"human_time_seconds"`
}

// TimeMetricsReport is the response for GET /admin/time_metrics.
type TimeMetricsReport struct {
	Conversations    []ConversationTimeMetric `json:"conversations"`
	TotalHumanTime   float64                  `json:"total_human_time_seconds"`
	AverageHumanTime float64                  `json:"average_human_time_seconds"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Responder  string `json:"responder"` // "ready" or "fallback"
	QueueDepth int    `json:"queue_depth"`
	Uptime     int64  `json:"uptime_seconds"`
}
