package engine

import (
	"sort"
	"time"

	"github.com/ashita-ai/taiwa/internal/model"
)

// agentRegistry tracks agent presence and per-agent conversation capacity.
// Records are created on login or first accept and never deleted.
//
// Callers hold the engine mutex.
type agentRegistry struct {
	agents map[string]*model.Agent
}

func newAgentRegistry() *agentRegistry {
	return &agentRegistry{agents: make(map[string]*model.Agent)}
}

// Login upserts an agent record. A re-login refreshes the name and login
// time but keeps the active-conversation bookkeeping intact.
func (r *agentRegistry) Login(id, name string, now time.Time) model.Agent {
	a, ok := r.agents[id]
	if !ok {
		a = &model.Agent{ID: id, Status: model.AgentAvailable}
		r.agents[id] = a
	}
	if name != "" {
		a.Name = name
	}
	a.LoginTime = now
	return *a
}

// Acquire marks the agent busy and counts one more active conversation,
// creating the record if the agent accepted without logging in first.
func (r *agentRegistry) Acquire(id, name string, now time.Time) model.Agent {
	a, ok := r.agents[id]
	if !ok {
		a = &model.Agent{ID: id, LoginTime: now}
		r.agents[id] = a
	}
	if name != "" {
		a.Name = name
	}
	a.Status = model.AgentBusy
	a.ActiveConversations++
	return *a
}

// Release counts one conversation down, floored at zero. At zero the agent
// flips back to available.
func (r *agentRegistry) Release(id string) model.Agent {
	a, ok := r.agents[id]
	if !ok {
		return model.Agent{}
	}
	if a.ActiveConversations > 0 {
		a.ActiveConversations--
	}
	if a.ActiveConversations == 0 {
		a.Status = model.AgentAvailable
	}
	return *a
}

// Get returns a copy of the agent record.
func (r *agentRegistry) Get(id string) (model.Agent, bool) {
	a, ok := r.agents[id]
	if !ok {
		return model.Agent{}, false
	}
	return *a, true
}

// List returns all agent records sorted by id.
func (r *agentRegistry) List() []model.Agent {
	out := make([]model.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of known agents.
func (r *agentRegistry) Count() int { return len(r.agents) }
