package server

import (
	"net/http"
	"time"

	"github.com/ashita-ai/taiwa/internal/model"
)

// HandleChatStart handles POST /chat/start.
func (h *Handlers) HandleChatStart(w http.ResponseWriter, r *http.Request) {
	var req model.StartChatRequest
	if err := decodeJSON(w, r, h.maxRequestBodyBytes, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	result, err := h.engine.Start(model.ClientData{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result)
}

// HandleChatMessage handles POST /chat/message.
func (h *Handlers) HandleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req model.ChatMessageRequest
	if err := decodeJSON(w, r, h.maxRequestBodyBytes, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.ConversationID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "conversation_id is required")
		return
	}

	result, err := h.engine.Message(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleChatTransfer handles POST /chat/transfer.
func (h *Handlers) HandleChatTransfer(w http.ResponseWriter, r *http.Request) {
	var req model.TransferRequest
	if err := decodeJSON(w, r, h.maxRequestBodyBytes, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.ConversationID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "conversation_id is required")
		return
	}

	result, err := h.engine.Transfer(req.ConversationID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleChatRate handles POST /chat/rate.
func (h *Handlers) HandleChatRate(w http.ResponseWriter, r *http.Request) {
	var req model.RateMessageRequest
	if err := decodeJSON(w, r, h.maxRequestBodyBytes, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.ConversationID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "conversation_id is required")
		return
	}

	if err := h.engine.Rate(req.ConversationID, req.MessageIndex, req.Rating); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"rated": true})
}

// HandleChatEnd handles POST /chat/end.
func (h *Handlers) HandleChatEnd(w http.ResponseWriter, r *http.Request) {
	var req model.EndChatRequest
	if err := decodeJSON(w, r, h.maxRequestBodyBytes, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.ConversationID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "conversation_id is required")
		return
	}

	result, err := h.engine.End(req.ConversationID, req.Satisfaction, "client")
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleChatPoll handles GET /chat/poll/{conversation_id}. The optional
// last_check query parameter (RFC 3339) filters to messages after that
// instant; without it the whole agent and system backlog is returned.
func (h *Handlers) HandleChatPoll(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("conversation_id")
	if conversationID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "conversation_id is required")
		return
	}

	var lastCheck time.Time
	if raw := r.URL.Query().Get("last_check"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "last_check must be RFC 3339")
			return
		}
		lastCheck = parsed
	}

	result, err := h.engine.Poll(conversationID, lastCheck)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
