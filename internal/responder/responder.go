// Package responder generates bot replies for conversations.
//
// Two backends exist: an ordered rule table (always available) and an
// OpenAI-backed generator. The engine only sees the Generator interface;
// backend failures fall back to the rule table so the chat never goes
// silent because of an upstream outage.
package responder

import "context"

// Generator produces a reply for one user message. Implementations must be
// safe for concurrent use and must not block indefinitely.
type Generator interface {
	Reply(ctx context.Context, conversationID, text string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, conversationID, text string) (string, error)

// Reply calls f.
func (f GeneratorFunc) Reply(ctx context.Context, conversationID, text string) (string, error) {
	return f(ctx, conversationID, text)
}
