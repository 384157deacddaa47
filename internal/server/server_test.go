package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/taiwa/internal/archive"
	"github.com/ashita-ai/taiwa/internal/engine"
	"github.com/ashita-ai/taiwa/internal/model"
	"github.com/ashita-ai/taiwa/internal/responder"
	"github.com/ashita-ai/taiwa/internal/server"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	dir := t.TempDir()
	logger := discardLogger()

	w, err := archive.NewWriter(dir, logger)
	require.NoError(t, err)
	r, err := archive.NewReader(dir, 16, logger)
	require.NoError(t, err)

	rules := responder.NewRuleResponder(responder.RuleSet{})
	broker := server.NewBroker(logger)
	e := engine.New(engine.Deps{
		Archive:   w,
		History:   engine.NewHistoryIndex(r, true),
		Responder: rules,
		Suggester: rules,
		Events:    broker,
		Logger:    logger,
	})

	return server.New(server.ServerConfig{
		Engine:              e,
		Logger:              logger,
		Broker:              broker,
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the data field of the response envelope into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage    `json:"data"`
		Meta model.ResponseMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Meta.RequestID)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func startConversation(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/chat/start", model.StartChatRequest{
		Name: "Marina", Email: "marina@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var result model.StartChatResult
	decodeData(t, rec, &result)
	require.NotEmpty(t, result.ConversationID)
	return result.ConversationID
}

func TestHealth(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health model.HealthResponse
	decodeData(t, rec, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "ready", health.Responder)
	assert.Zero(t, health.QueueDepth)
}

func TestChatStart_ReturnsWelcome(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/chat/start", model.StartChatRequest{Name: "João"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var result model.StartChatResult
	decodeData(t, rec, &result)
	assert.NotEmpty(t, result.ConversationID)
	assert.False(t, result.ReturningClient)
	assert.Contains(t, result.Message, "Olá")
}

func TestChatStart_RejectsUnknownFields(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/chat/start", map[string]string{"surname": "Silva"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestChatMessage_BotReply(t *testing.T) {
	h := newTestServer(t).Handler()
	id := startConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/chat/message", model.ChatMessageRequest{
		ConversationID: id, Message: "qual o horário de atendimento?",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result model.ChatMessageResult
	decodeData(t, rec, &result)
	assert.Equal(t, "bot", result.Type)
	assert.NotEmpty(t, result.Response)
}

func TestChatMessage_UnknownConversation(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/chat/message", model.ChatMessageRequest{
		ConversationID: "missing", Message: "oi",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestTransferAcceptAndAgentFlow(t *testing.T) {
	h := newTestServer(t).Handler()
	id := startConversation(t, h)

	// Client asks for a human.
	rec := doJSON(t, h, http.MethodPost, "/chat/transfer", model.TransferRequest{ConversationID: id})
	require.Equal(t, http.StatusOK, rec.Code)
	var transfer model.TransferResult
	decodeData(t, rec, &transfer)
	assert.Equal(t, 1, transfer.QueuePosition)

	// The conversation shows up in the admin queue.
	rec = doJSON(t, h, http.MethodGet, "/admin/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot model.QueueSnapshot
	decodeData(t, rec, &snapshot)
	require.Len(t, snapshot.Waiting, 1)
	assert.Equal(t, id, snapshot.Waiting[0].ConversationID)

	// Agent logs in and accepts.
	rec = doJSON(t, h, http.MethodPost, "/admin/agent_login", model.AgentLoginRequest{
		AgentID: "ag-1", AgentName: "Paula",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/admin/accept", model.AcceptRequest{
		ConversationID: id, AgentID: "ag-1", AgentName: "Paula",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var accept model.AcceptResult
	decodeData(t, rec, &accept)
	assert.Equal(t, "Paula", accept.AgentName)

	// Agent sends a message; the client sees it on poll.
	rec = doJSON(t, h, http.MethodPost, "/admin/send_message", model.AgentMessageRequest{
		ConversationID: id, AgentID: "ag-1", Message: "Olá, em que posso ajudar?",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/chat/poll/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var poll model.PollResult
	decodeData(t, rec, &poll)
	require.NotEmpty(t, poll.Messages)
	last := poll.Messages[len(poll.Messages)-1]
	assert.Equal(t, model.MessageTypeAgent, last.Type)
	assert.False(t, poll.ConversationEnded)

	// Agent closes the conversation and it gets archived.
	rec = doJSON(t, h, http.MethodPost, "/admin/end_conversation", model.EndConversationRequest{
		ConversationID: id, AgentID: "ag-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var end model.EndChatResult
	decodeData(t, rec, &end)
	assert.True(t, end.Archived)
	assert.NotEmpty(t, end.ArchiveFile)

	rec = doJSON(t, h, http.MethodGet, "/chat/poll/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &poll)
	assert.True(t, poll.ConversationEnded)
}

func TestAdminConversation_AgentReadsRoutedClientMessages(t *testing.T) {
	h := newTestServer(t).Handler()
	id := startConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/chat/transfer", model.TransferRequest{ConversationID: id})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/admin/accept", model.AcceptRequest{
		ConversationID: id, AgentID: "ag-1", AgentName: "Paula",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// While assigned, the client's message is only acknowledged as routed.
	rec = doJSON(t, h, http.MethodPost, "/chat/message", model.ChatMessageRequest{
		ConversationID: id, Message: "meu pedido chegou quebrado",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var routed model.ChatMessageResult
	decodeData(t, rec, &routed)
	require.Equal(t, "routed", routed.Type)

	// The agent console reads the full transcript, user messages included.
	rec = doJSON(t, h, http.MethodGet, "/admin/conversation/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var conv model.Conversation
	decodeData(t, rec, &conv)
	assert.Equal(t, id, conv.ID)
	assert.Equal(t, "ag-1", conv.AssignedAgent)

	var userContents []string
	for _, m := range conv.Messages {
		if m.Type == model.MessageTypeUser {
			userContents = append(userContents, m.Content)
		}
	}
	assert.Contains(t, userContents, "meu pedido chegou quebrado")
}

func TestAdminConversation_Unknown(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodGet, "/admin/conversation/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestAcceptUnqueuedConversation(t *testing.T) {
	h := newTestServer(t).Handler()
	id := startConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/admin/accept", model.AcceptRequest{
		ConversationID: id, AgentID: "ag-1", AgentName: "Paula",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestChatEnd_ThenSecondEndConflicts(t *testing.T) {
	h := newTestServer(t).Handler()
	id := startConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/chat/end", model.EndChatRequest{
		ConversationID: id, Satisfaction: "positive",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/chat/end", model.EndChatRequest{ConversationID: id})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFLICT")
}

func TestChatRate_InvalidValueRejected(t *testing.T) {
	h := newTestServer(t).Handler()
	id := startConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/chat/rate", model.RateMessageRequest{
		ConversationID: id, MessageIndex: 0, Rating: "amazing",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatPoll_BadLastCheckParam(t *testing.T) {
	h := newTestServer(t).Handler()
	id := startConversation(t, h)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/chat/poll/%s?last_check=yesterday", id), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "RFC 3339")
}

func TestAdminStats(t *testing.T) {
	h := newTestServer(t).Handler()
	startConversation(t, h)
	startConversation(t, h)

	rec := doJSON(t, h, http.MethodGet, "/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats model.Stats
	decodeData(t, rec, &stats)
	assert.Equal(t, 2, stats.TotalConversations)
	assert.Equal(t, 2, stats.ActiveConversations)
}

func TestRequestIDPropagation(t *testing.T) {
	h := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "my-req-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "my-req-id", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), "my-req-id")
}

func TestSecurityHeaders(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
