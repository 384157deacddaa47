package engine

import "errors"

// Domain errors surfaced to the HTTP layer. Handlers map these onto the
// standard API error codes; everything else is an internal error.
var (
	ErrNotFound           = errors.New("conversation not found")
	ErrAccessDenied       = errors.New("agent is not assigned to this conversation")
	ErrInvalidInput       = errors.New("invalid input")
	ErrMessageTooLong     = errors.New("message exceeds the length ceiling")
	ErrOutOfRange         = errors.New("message index out of range")
	ErrConversationClosed = errors.New("conversation already completed")
	ErrAlreadyAssigned    = errors.New("conversation is assigned to another agent")
	ErrNotQueued          = errors.New("conversation is not waiting for an agent")
	ErrAlreadyRated       = errors.New("message already rated")
)
