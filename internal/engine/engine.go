// Package engine orchestrates the conversation lifecycle: message intake,
// intent-based transfer to the human handoff queue, agent assignment,
// timing measurement, and persistence on close.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ashita-ai/taiwa/internal/archive"
	"github.com/ashita-ai/taiwa/internal/model"
	"github.com/ashita-ai/taiwa/internal/responder"
)

// transferKeywords trigger the handoff transition when found in a user
// message (case-insensitive substring match).
var transferKeywords = []string{
	"atendente",
	"humano",
	"pessoa",
	"falar com alguém",
	"transferir",
	"não resolve",
	"operador",
	"falar com pessoa",
}

// showTransferAfter is the user-message count after which the transfer
// option is offered proactively.
const showTransferAfter = 3

// deferralReply is the last-resort reply when the responder itself errors.
const deferralReply = "Desculpe, estou com dificuldades técnicas no momento. Posso transferir você para um atendente."

// Archiver persists a completed conversation and returns the file path.
type Archiver interface {
	Persist(c *model.Conversation) (string, error)
}

// Suggester proposes follow-up chips for a user message.
type Suggester interface {
	Suggest(text string) []string
}

// EventSink receives queue and lifecycle change notifications, e.g. for
// fan-out to admin dashboards. Implementations must not block.
type EventSink interface {
	Publish(event string, payload any)
}

// Deps holds the collaborators for constructing an Engine.
// Optional (nil-safe): Suggester, Events, Now.
type Deps struct {
	Archive   Archiver
	History   *HistoryIndex
	Responder responder.Generator
	Suggester Suggester
	Events    EventSink
	Logger    *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time

	// EvictLimit bounds how many archived completed conversations stay in
	// memory; 0 keeps all of them for the process lifetime.
	EvictLimit int
}

// Engine owns the conversation store, the handoff queue, and the agent
// registry. One mutex guards all three: every operation is a short
// read-modify-write and queue positions are always live recounts, so a
// coarse lock keeps the cross-structure invariants trivially consistent.
// The responder call is the only slow path and runs outside the lock.
type Engine struct {
	mu       sync.Mutex
	convs    map[string]*model.Conversation
	queue    *handoffQueue
	agents   *agentRegistry
	archived []string // completed+archived ids, oldest first, for eviction

	archive    Archiver
	history    *HistoryIndex
	responder  responder.Generator
	suggester  Suggester
	events     EventSink
	logger     *slog.Logger
	now        func() time.Time
	evictLimit int
}

// New constructs an Engine. Construct one per process and thread it into
// every request handler.
func New(d Deps) *Engine {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		convs:      make(map[string]*model.Conversation),
		queue:      newHandoffQueue(),
		agents:     newAgentRegistry(),
		archive:    d.Archive,
		history:    d.History,
		responder:  d.Responder,
		suggester:  d.Suggester,
		events:     d.Events,
		logger:     d.Logger,
		now:        now,
		evictLimit: d.EvictLimit,
	}
}

// Start creates a conversation. The client's history is fetched once, by
// normalized email, and snapshotted onto the conversation; returning
// clients get a personalized welcome.
func (e *Engine) Start(clientData model.ClientData) (model.StartChatResult, error) {
	now := e.now()
	clientData.Email = model.NormalizeEmail(clientData.Email)
	clientData.CollectedAt = now

	history := e.lookupHistory(clientData.Email, "")
	welcome := welcomeMessage(clientData.Name, history, now)

	conv := &model.Conversation{
		ID:            uuid.New().String(),
		ClientData:    clientData,
		State:         model.StateUnassigned,
		StartTime:     now,
		ClientHistory: history,
		Messages: []model.Message{
			{Type: model.MessageTypeBot, Content: welcome, Timestamp: now},
		},
	}

	e.mu.Lock()
	e.convs[conv.ID] = conv
	e.mu.Unlock()

	e.logger.Info("conversation started",
		"conversation_id", conv.ID,
		"returning_client", len(history) > 0,
		"prior_conversations", len(history),
	)

	return model.StartChatResult{
		ConversationID:  conv.ID,
		Message:         welcome,
		ReturningClient: len(history) > 0,
	}, nil
}

// Message appends the user message and dispatches it: routed to the agent
// when assigned, answered with the queue position while queued, transferred
// on a trigger keyword, otherwise answered by the responder.
func (e *Engine) Message(ctx context.Context, conversationID, text string) (model.ChatMessageResult, error) {
	if conversationID == "" || strings.TrimSpace(text) == "" {
		return model.ChatMessageResult{}, fmt.Errorf("%w: conversation_id and message are required", ErrInvalidInput)
	}

	e.mu.Lock()
	c, ok := e.convs[conversationID]
	if !ok {
		e.mu.Unlock()
		return model.ChatMessageResult{}, ErrNotFound
	}
	if c.State.Terminal() {
		e.mu.Unlock()
		return model.ChatMessageResult{}, ErrConversationClosed
	}

	now := e.now()
	c.Messages = append(c.Messages, model.Message{
		Type: model.MessageTypeUser, Content: text, Timestamp: now,
	})

	switch {
	case c.State == model.StateAssigned:
		agentName := c.AgentName
		e.mu.Unlock()
		return model.ChatMessageResult{
			Response: "Sua mensagem foi encaminhada ao atendente " + agentName + ".",
			Type:     "routed",
		}, nil

	case c.State == model.StateQueued:
		pos := e.queue.Len()
		e.mu.Unlock()
		return model.ChatMessageResult{
			Response:      fmt.Sprintf("Você está na fila de atendimento. Posição atual: %d.", pos),
			Type:          "queue",
			QueuePosition: pos,
		}, nil

	case wantsHuman(text):
		pos, response := e.transferLocked(c, now)
		e.mu.Unlock()
		return model.ChatMessageResult{
			Response:      response,
			Type:          "system",
			QueuePosition: pos,
		}, nil
	}

	userCount := c.UserMessageCount()
	e.mu.Unlock()

	// Responder call happens outside the lock: it may block on network I/O
	// up to its own timeout and always yields something to say.
	reply, err := e.responder.Reply(ctx, conversationID, text)
	if err != nil {
		e.logger.Warn("responder error, using deferral reply",
			"conversation_id", conversationID, "error", err)
		reply = deferralReply
	}

	e.mu.Lock()
	if c, ok := e.convs[conversationID]; ok && !c.State.Terminal() {
		c.Messages = append(c.Messages, model.Message{
			Type: model.MessageTypeBot, Content: reply, Timestamp: e.now(),
		})
	}
	e.mu.Unlock()

	result := model.ChatMessageResult{
		Response:           reply,
		Type:               "bot",
		ShowTransferOption: userCount >= showTransferAfter,
	}
	if e.suggester != nil {
		result.Suggestions = e.suggester.Suggest(text)
	}
	return result, nil
}

// Transfer moves the conversation into the handoff queue. Idempotent: a
// second call never duplicates the queue entry or resets the transfer time.
func (e *Engine) Transfer(conversationID string) (model.TransferResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.convs[conversationID]
	if !ok {
		return model.TransferResult{}, ErrNotFound
	}
	if c.State.Terminal() {
		return model.TransferResult{}, ErrConversationClosed
	}

	pos, response := e.transferLocked(c, e.now())
	return model.TransferResult{Response: response, QueuePosition: pos}, nil
}

// transferLocked performs the handoff transition. Callers hold e.mu.
func (e *Engine) transferLocked(c *model.Conversation, now time.Time) (int, string) {
	if c.State == model.StateAssigned {
		return 0, "Você já está sendo atendido por " + c.AgentName + "."
	}
	if e.queue.Contains(c.ID) {
		pos := e.queue.Len()
		return pos, fmt.Sprintf("Você já está na fila de atendimento. Posição atual: %d.", pos)
	}

	c.TransferredToHuman = true
	c.Timing.TransferTime = now
	c.State = model.StateQueued
	e.queue.Enqueue(model.QueueEntry{
		ConversationID: c.ID,
		ClientName:     c.ClientData.Name,
		ClientEmail:    c.ClientData.Email,
		Returning:      len(c.ClientHistory) > 0,
		EnqueuedAt:     now,
	})

	pos := e.queue.Len()
	response := fmt.Sprintf("Transferindo você para um de nossos atendentes. Posição na fila: %d.", pos)
	c.Messages = append(c.Messages, model.Message{
		Type: model.MessageTypeSystem, Content: response, Timestamp: now,
	})

	e.logger.Info("conversation transferred to queue",
		"conversation_id", c.ID,
		"returning_client", len(c.ClientHistory) > 0,
		"queue_length", pos,
	)
	e.publish("queue_updated", map[string]any{"queued": pos})
	return pos, response
}

// AgentAccept assigns the agent to a queued conversation, removes it from
// the queue, and stamps the human start time. Accepting a conversation you
// already hold is a no-op that returns the original start time.
func (e *Engine) AgentAccept(conversationID, agentID, agentName string) (model.AcceptResult, error) {
	if conversationID == "" || agentID == "" {
		return model.AcceptResult{}, fmt.Errorf("%w: conversation_id and agent_id are required", ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.convs[conversationID]
	if !ok {
		return model.AcceptResult{}, ErrNotFound
	}

	switch c.State {
	case model.StateCompleted:
		return model.AcceptResult{}, ErrConversationClosed
	case model.StateAssigned:
		if c.AssignedAgent == agentID {
			return model.AcceptResult{
				ConversationID: c.ID,
				AgentName:      c.AgentName,
				AgentStartTime: c.Timing.HumanStartTime,
				ClientHistory:  c.ClientHistory,
			}, nil
		}
		return model.AcceptResult{}, ErrAlreadyAssigned
	case model.StateUnassigned:
		return model.AcceptResult{}, ErrNotQueued
	}

	now := e.now()
	agent := e.agents.Acquire(agentID, agentName, now)
	c.State = model.StateAssigned
	c.AssignedAgent = agentID
	c.AgentName = agent.Name
	c.Timing.HumanStartTime = now
	e.queue.Remove(c.ID)

	c.Messages = append(c.Messages, model.Message{
		Type:      model.MessageTypeSystem,
		Content:   acceptAnnouncement(agent.Name, c.ClientHistory, now),
		Timestamp: now,
	})

	e.logger.Info("conversation accepted",
		"conversation_id", c.ID,
		"agent_id", agentID,
		"active_conversations", agent.ActiveConversations,
	)
	e.publish("queue_updated", map[string]any{"queued": e.queue.Len()})

	return model.AcceptResult{
		ConversationID: c.ID,
		AgentName:      agent.Name,
		AgentStartTime: now,
		ClientHistory:  c.ClientHistory,
	}, nil
}

// AgentMessage appends an agent or system message to an assigned
// conversation. System messages bypass the assignment check.
func (e *Engine) AgentMessage(conversationID, agentID, text, msgType string) (model.Message, error) {
	if msgType == "" {
		msgType = string(model.MessageTypeAgent)
	}
	if msgType != string(model.MessageTypeAgent) && msgType != string(model.MessageTypeSystem) {
		return model.Message{}, fmt.Errorf("%w: type must be \"agent\" or \"system\"", ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return model.Message{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > model.MaxAgentMessageLen {
		return model.Message{}, ErrMessageTooLong
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.convs[conversationID]
	if !ok {
		return model.Message{}, ErrNotFound
	}
	if c.State.Terminal() {
		return model.Message{}, ErrConversationClosed
	}
	if msgType != string(model.MessageTypeSystem) && c.AssignedAgent != agentID {
		return model.Message{}, ErrAccessDenied
	}

	msg := model.Message{
		Type:      model.MessageType(msgType),
		Content:   text,
		Timestamp: e.now(),
	}
	if msg.Type == model.MessageTypeAgent {
		msg.AgentID = agentID
	}
	c.Messages = append(c.Messages, msg)
	return msg, nil
}

// AgentEnd closes the conversation from the agent side: stamps the human
// handling time, releases the agent's slot, archives the transcript.
func (e *Engine) AgentEnd(conversationID, agentID string) (model.EndChatResult, error) {
	e.mu.Lock()

	c, ok := e.convs[conversationID]
	if !ok {
		e.mu.Unlock()
		return model.EndChatResult{}, ErrNotFound
	}
	if c.State.Terminal() {
		e.mu.Unlock()
		return model.EndChatResult{}, ErrConversationClosed
	}
	if c.AssignedAgent != agentID {
		e.mu.Unlock()
		return model.EndChatResult{}, ErrAccessDenied
	}

	now := e.now()
	seconds := e.finishLocked(c, "agent", now)
	c.Messages = append(c.Messages, model.Message{
		Type:      model.MessageTypeSystem,
		Content:   fmt.Sprintf("Atendimento encerrado. Tempo de atendimento humano: %.1f minutos.", seconds/60),
		Timestamp: now,
	})

	snapshot := e.snapshotLocked(c)
	e.mu.Unlock()

	return e.archiveAndReport(snapshot, seconds)
}

// End closes the conversation from the client side (or an admin timeout).
// A queued conversation leaves the queue; an assigned one releases the
// agent and records the human time.
func (e *Engine) End(conversationID, satisfaction, endedBy string) (model.EndChatResult, error) {
	if satisfaction != "" && !model.ValidRating(satisfaction) {
		return model.EndChatResult{}, fmt.Errorf("%w: satisfaction must be positive, negative or neutral", ErrInvalidInput)
	}
	if endedBy == "" {
		endedBy = "client"
	}

	e.mu.Lock()

	c, ok := e.convs[conversationID]
	if !ok {
		e.mu.Unlock()
		return model.EndChatResult{}, ErrNotFound
	}
	if c.State.Terminal() {
		e.mu.Unlock()
		return model.EndChatResult{}, ErrConversationClosed
	}

	now := e.now()
	c.Satisfaction = satisfaction
	seconds := e.finishLocked(c, endedBy, now)
	c.Messages = append(c.Messages, model.Message{
		Type: model.MessageTypeSystem, Content: "Conversa encerrada. Obrigado pelo contato!", Timestamp: now,
	})

	snapshot := e.snapshotLocked(c)
	e.mu.Unlock()

	return e.archiveAndReport(snapshot, seconds)
}

// finishLocked applies the terminal transition and returns the human
// handling seconds. Callers hold e.mu.
func (e *Engine) finishLocked(c *model.Conversation, endedBy string, now time.Time) float64 {
	var seconds float64
	switch c.State {
	case model.StateQueued:
		e.queue.Remove(c.ID)
		e.publish("queue_updated", map[string]any{"queued": e.queue.Len()})
	case model.StateAssigned:
		// 0 if the start was never stamped; the accept path always sets it.
		if !c.Timing.HumanStartTime.IsZero() {
			seconds = now.Sub(c.Timing.HumanStartTime).Seconds()
		}
		c.Timing.HumanEndTime = now
		c.Timing.TotalHumanTimeSeconds = seconds
		e.agents.Release(c.AssignedAgent)
	}

	c.State = model.StateCompleted
	c.EndTime = now
	c.EndedBy = endedBy
	return seconds
}

// snapshotLocked copies the conversation for archival outside the lock.
func (e *Engine) snapshotLocked(c *model.Conversation) *model.Conversation {
	cp := *c
	cp.Messages = make([]model.Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

// archiveAndReport persists the snapshot and assembles the close result.
// A persistence failure is logged and surfaced in the result, but the
// conversation stays completed: losing one transcript beats leaving the
// conversation stuck open.
func (e *Engine) archiveAndReport(snapshot *model.Conversation, seconds float64) (model.EndChatResult, error) {
	result := model.EndChatResult{
		HumanTimeMinutes: humanMinutes(seconds),
		Metrics:          archive.BuildRecord(snapshot).Metrics,
	}

	path, err := e.archive.Persist(snapshot)
	if err != nil {
		e.logger.Error("archive write failed, transcript may be lost",
			"conversation_id", snapshot.ID, "error", err)
	} else {
		result.Archived = true
		result.ArchiveFile = path
		e.noteArchived(snapshot.ID)
	}

	e.logger.Info("conversation ended",
		"conversation_id", snapshot.ID,
		"ended_by", snapshot.EndedBy,
		"human_time_seconds", seconds,
		"archived", result.Archived,
	)
	e.publish("conversation_ended", map[string]any{"conversation_id": snapshot.ID})
	return result, nil
}

// noteArchived records a durably archived conversation and evicts the
// oldest archived entries beyond the configured limit. The archive is the
// durable copy, so evicted conversations remain visible through history.
func (e *Engine) noteArchived(conversationID string) {
	if e.evictLimit <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.archived = append(e.archived, conversationID)
	for len(e.archived) > e.evictLimit {
		oldest := e.archived[0]
		e.archived = e.archived[1:]
		if c, ok := e.convs[oldest]; ok && c.State.Terminal() {
			delete(e.convs, oldest)
		}
	}
}

// Rate patches the rating of the message at index. This is the one
// permitted post-append mutation, and it is permitted exactly once.
func (e *Engine) Rate(conversationID string, messageIndex int, rating string) error {
	if !model.ValidRating(rating) {
		return fmt.Errorf("%w: rating must be positive, negative or neutral", ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.convs[conversationID]
	if !ok {
		return ErrNotFound
	}
	if messageIndex < 0 || messageIndex >= len(c.Messages) {
		return ErrOutOfRange
	}
	if c.Messages[messageIndex].Rating != "" {
		return ErrAlreadyRated
	}
	c.Messages[messageIndex].Rating = rating
	return nil
}

// Poll returns agent and system messages newer than lastCheck, plus the
// terminal flag. The client widget drives this while waiting for a human.
func (e *Engine) Poll(conversationID string, lastCheck time.Time) (model.PollResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.convs[conversationID]
	if !ok {
		return model.PollResult{}, ErrNotFound
	}

	result := model.PollResult{
		Messages:          []model.Message{},
		ConversationEnded: c.State.Terminal(),
	}
	for _, m := range c.Messages {
		if m.Type != model.MessageTypeAgent && m.Type != model.MessageTypeSystem {
			continue
		}
		if m.Timestamp.After(lastCheck) {
			result.Messages = append(result.Messages, m)
		}
	}
	return result, nil
}

// Conversation returns a copy of the conversation aggregate, transcript
// included.
func (e *Engine) Conversation(conversationID string) (model.Conversation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.convs[conversationID]
	if !ok {
		return model.Conversation{}, false
	}
	return *e.snapshotLocked(c), true
}

// wantsHuman reports whether the message contains a transfer trigger.
func wantsHuman(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range transferKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// lookupHistory snapshots live summaries under the lock, then merges the
// archive outside it.
func (e *Engine) lookupHistory(email, excludeID string) []model.ConversationSummary {
	if email == "" {
		return nil
	}

	e.mu.Lock()
	var live []model.ConversationSummary
	for id, c := range e.convs {
		if id == excludeID {
			continue
		}
		if model.NormalizeEmail(c.ClientData.Email) == email {
			live = append(live, Summarize(c))
		}
	}
	e.mu.Unlock()

	merged, err := e.history.Lookup(email, live)
	if err != nil {
		e.logger.Warn("history: archive lookup failed, using live view only",
			"email", email, "error", err)
	}
	return merged
}

func (e *Engine) publish(event string, payload any) {
	if e.events != nil {
		e.events.Publish(event, payload)
	}
}

// welcomeMessage composes the opening bot message.
func welcomeMessage(name string, history []model.ConversationSummary, now time.Time) string {
	if len(history) == 0 {
		if name != "" {
			return "Olá, " + name + "! Bem-vindo ao nosso atendimento. Como posso ajudar?"
		}
		return "Olá! Bem-vindo ao nosso atendimento. Como posso ajudar você hoje?"
	}

	greeting := "Olá novamente"
	if name != "" {
		greeting += ", " + name
	}
	times := fmt.Sprintf("%d vezes", len(history))
	if len(history) == 1 {
		times = "1 vez"
	}
	msg := fmt.Sprintf("%s! Você já conversou conosco %s.", greeting, times)
	if when := relativeDate(history[0].StartTime, now); when != "" {
		msg += fmt.Sprintf(" Sua última conversa foi: %s.", when)
	}
	return msg + " Como posso ajudar hoje?"
}

// acceptAnnouncement composes the system message for an agent accept,
// including a compact history digest when the client has one. The digest
// is advisory context for the agent; nothing parses it downstream.
func acceptAnnouncement(agentName string, history []model.ConversationSummary, now time.Time) string {
	msg := "Atendente " + agentName + " entrou na conversa."
	if len(history) == 0 {
		return msg
	}

	last := history[0]
	digest := fmt.Sprintf(" Cliente com %d conversa(s) anterior(es)", len(history))
	if when := relativeDate(last.StartTime, now); when != "" {
		digest += ", última em " + when
	}
	if last.Transferred {
		digest += ", já atendida por humano"
	}
	if last.Satisfaction != "" {
		digest += ", satisfação: " + last.Satisfaction
	}
	return msg + digest + "."
}
