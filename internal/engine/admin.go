package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/ashita-ai/taiwa/internal/model"
)

// AgentLogin registers agent presence. Re-login refreshes name and login
// time without touching capacity bookkeeping.
func (e *Engine) AgentLogin(agentID, agentName string) (model.Agent, error) {
	if agentID == "" {
		return model.Agent{}, fmt.Errorf("%w: agent_id is required", ErrInvalidInput)
	}

	e.mu.Lock()
	agent := e.agents.Login(agentID, agentName, e.now())
	e.mu.Unlock()

	e.logger.Info("agent logged in", "agent_id", agentID, "agent_name", agent.Name)
	return agent, nil
}

// Agents returns all known agent records.
func (e *Engine) Agents() []model.Agent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agents.List()
}

// QueueSnapshot returns the waiting queue in priority order with formatted
// waiting times, plus all assigned in-progress conversations.
func (e *Engine) QueueSnapshot() model.QueueSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	entries := e.queue.Entries()
	waiting := make([]model.QueueEntryView, 0, len(entries))
	for _, entry := range entries {
		waiting = append(waiting, model.QueueEntryView{
			QueueEntry: entry,
			Waiting:    formatWait(now.Sub(entry.EnqueuedAt)),
		})
	}

	var active []model.ActiveConversationView
	for _, c := range e.convs {
		if c.State != model.StateAssigned {
			continue
		}
		active = append(active, model.ActiveConversationView{
			ConversationID: c.ID,
			AgentID:        c.AssignedAgent,
			AgentName:      c.AgentName,
			ClientName:     c.ClientData.Name,
			StartedAt:      c.Timing.HumanStartTime,
		})
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].StartedAt.Before(active[j].StartedAt)
	})

	return model.QueueSnapshot{
		Waiting:      waiting,
		Active:       active,
		TotalWaiting: len(waiting),
	}
}

// Clients aggregates the known clients across the live store, most
// recently seen first.
func (e *Engine) Clients() []model.ClientView {
	e.mu.Lock()
	defer e.mu.Unlock()

	byEmail := make(map[string]*model.ClientView)
	for _, c := range e.convs {
		email := model.NormalizeEmail(c.ClientData.Email)
		if email == "" {
			continue
		}
		v, ok := byEmail[email]
		if !ok {
			v = &model.ClientView{Email: email}
			byEmail[email] = v
		}
		v.Conversations++
		if c.StartTime.After(v.LastSeen) {
			v.LastSeen = c.StartTime
			if c.ClientData.Name != "" {
				v.Name = c.ClientData.Name
			}
		}
	}

	out := make([]model.ClientView, 0, len(byEmail))
	for _, v := range byEmail {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out
}

// Stats returns the aggregate counters for the admin dashboard.
func (e *Engine) Stats() model.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	stats := model.Stats{
		TotalConversations: len(e.convs),
		Queued:             e.queue.Len(),
		AgentsOnline:       e.agents.Count(),
	}
	for _, c := range e.convs {
		if c.TransferredToHuman {
			stats.Transferred++
		}
		if !c.State.Terminal() {
			stats.ActiveConversations++
			continue
		}
		if sameDay(c.EndTime, now) {
			stats.CompletedToday++
		}
	}
	return stats
}

// TimeMetrics reports per-conversation human handling time and the
// aggregate totals over completed conversations.
func (e *Engine) TimeMetrics() model.TimeMetricsReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := model.TimeMetricsReport{Conversations: []model.ConversationTimeMetric{}}
	for _, c := range e.convs {
		if !c.State.Terminal() || c.Timing.TotalHumanTimeSeconds <= 0 {
			continue
		}
		report.Conversations = append(report.Conversations, model.ConversationTimeMetric{
			ConversationID:   c.ID,
			AgentName:        c.AgentName,
			HumanTimeSeconds: c.Timing.TotalHumanTimeSeconds,
		})
		report.TotalHumanTime += c.Timing.TotalHumanTimeSeconds
	}
	sort.Slice(report.Conversations, func(i, j int) bool {
		return report.Conversations[i].ConversationID < report.Conversations[j].ConversationID
	})
	if n := len(report.Conversations); n > 0 {
		report.AverageHumanTime = report.TotalHumanTime / float64(n)
	}
	return report
}

// History returns the merged memory+archive history for a client email.
func (e *Engine) History(email string) []model.ConversationSummary {
	return e.lookupHistory(model.NormalizeEmail(email), "")
}

// QueueDepth returns the live count of waiting conversations.
func (e *Engine) QueueDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
