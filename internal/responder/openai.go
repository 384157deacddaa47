package responder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const systemPrompt = "Você é um atendente virtual de suporte ao cliente. " +
	"Responda em português, de forma curta e educada. " +
	"Se não souber a resposta, sugira falar com um atendente humano."

// OpenAIResponder generates replies through the OpenAI Responses API.
// Every call carries its own timeout; any failure is absorbed by answering
// from the fallback generator instead.
type OpenAIResponder struct {
	client   openai.Client
	model    string
	timeout  time.Duration
	fallback Generator
	logger   *slog.Logger
}

// NewOpenAIResponder creates an OpenAI-backed responder.
func NewOpenAIResponder(apiKey, model string, timeout time.Duration, fallback Generator, logger *slog.Logger) (*OpenAIResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("responder: openai api key is required")
	}
	if fallback == nil {
		return nil, fmt.Errorf("responder: fallback generator is required")
	}
	return &OpenAIResponder{
		client:   openai.NewClient(option.WithAPIKey(apiKey)),
		model:    model,
		timeout:  timeout,
		fallback: fallback,
		logger:   logger,
	}, nil
}

// Reply asks the model for a completion. On timeout, API error, or an empty
// completion it answers from the fallback generator and reports no error.
func (g *OpenAIResponder) Reply(ctx context.Context, conversationID, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Responses.New(callCtx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(g.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(systemPrompt + "\n\nCliente: " + text),
		},
	})
	if err != nil {
		g.logger.Warn("responder: openai call failed, using fallback",
			"conversation_id", conversationID, "error", err)
		return g.fallback.Reply(ctx, conversationID, text)
	}

	reply := strings.TrimSpace(resp.OutputText())
	if reply == "" {
		g.logger.Warn("responder: empty completion, using fallback",
			"conversation_id", conversationID)
		return g.fallback.Reply(ctx, conversationID, text)
	}
	return reply, nil
}
