package server

import (
	"net/http"

	"github.com/ashita-ai/taiwa/internal/model"
)

// HandleAgentLogin handles POST /admin/agent_login.
func (h *Handlers) HandleAgentLogin(w http.ResponseWriter, r *http.Request) {
	var req model.AgentLoginRequest
	if err := decodeJSON(w, r, h.maxRequestBodyBytes, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.AgentID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "agent_id is required")
		return
	}

	agent, err := h.engine.AgentLogin(req.AgentID, req.AgentName)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, agent)
}

// HandleAccept handles POST /admin/accept.
func (h *Handlers) HandleAccept(w http.ResponseWriter, r *http.Request) {
	var req model.AcceptRequest
	if err := decodeJSON(w, r, h.maxRequestBodyBytes, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.ConversationID == "" || req.AgentID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "conversation_id and agent_id are required")
		return
	}

	result, err := h.engine.AgentAccept(req.ConversationID, req.AgentID, req.AgentName)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleAgentSendMessage handles POST /admin/send_message.
func (h *Handlers) HandleAgentSendMessage(w http.ResponseWriter, r *http.Request) {
	var req model.AgentMessageRequest
	if err := decodeJSON(w, r, h.maxRequestBodyBytes, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.ConversationID == "" || req.AgentID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "conversation_id and agent_id are required")
		return
	}

	msg, err := h.engine.AgentMessage(req.ConversationID, req.AgentID, req.Message, req.Type)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, msg)
}

// HandleAgentEndConversation handles POST /admin/end_conversation.
func (h *Handlers) HandleAgentEndConversation(w http.ResponseWriter, r *http.Request) {
	var req model.EndConversationRequest
	if err := decodeJSON(w, r, h.maxRequestBodyBytes, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.ConversationID == "" || req.AgentID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "conversation_id and agent_id are required")
		return
	}

	result, err := h.engine.AgentEnd(req.ConversationID, req.AgentID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleConversation handles GET /admin/conversation/{conversation_id}:
// the full transcript for the agent console, user messages included. The
// client polling path only carries agent and system messages, so this is
// how an agent reads what the client wrote.
func (h *Handlers) HandleConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("conversation_id")
	if conversationID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "conversation_id is required")
		return
	}

	conv, ok := h.engine.Conversation(conversationID)
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "conversation not found")
		return
	}
	writeJSON(w, r, http.StatusOK, conv)
}

// HandleQueue handles GET /admin/queue.
func (h *Handlers) HandleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.QueueSnapshot())
}

// HandleAgents handles GET /admin/agents.
func (h *Handlers) HandleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.Agents())
}

// HandleClients handles GET /admin/clients.
func (h *Handlers) HandleClients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.Clients())
}

// HandleStats handles GET /admin/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.Stats())
}

// HandleTimeMetrics handles GET /admin/time_metrics.
func (h *Handlers) HandleTimeMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.TimeMetrics())
}

// HandleClientHistory handles GET /admin/client_history/{email}.
func (h *Handlers) HandleClientHistory(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if email == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "email is required")
		return
	}
	writeJSON(w, r, http.StatusOK, h.engine.History(email))
}

// HandleQueueEvents handles GET /admin/queue/events: a Server-Sent Events
// stream of queue and lifecycle changes for the console dashboard.
func (h *Handlers) HandleQueueEvents(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "event stream not enabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-ch:
			if !open {
				return
			}
			if _, err := w.Write(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
