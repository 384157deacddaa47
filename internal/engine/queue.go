package engine

import (
	"sort"

	"github.com/ashita-ai/taiwa/internal/model"
)

// handoffQueue holds conversations waiting for a human agent. Membership is
// tracked in a set so duplicate enqueues are rejected in O(1); ordering is
// resolved at read time so removing one entry never perturbs the others.
//
// Callers hold the engine mutex; the queue itself is not safe for
// concurrent use.
type handoffQueue struct {
	order   []model.QueueEntry
	members map[string]struct{}
}

func newHandoffQueue() *handoffQueue {
	return &handoffQueue{members: make(map[string]struct{})}
}

// Enqueue appends an entry unless the conversation is already queued.
// Returns false on a duplicate.
func (q *handoffQueue) Enqueue(e model.QueueEntry) bool {
	if _, ok := q.members[e.ConversationID]; ok {
		return false
	}
	q.members[e.ConversationID] = struct{}{}
	q.order = append(q.order, e)
	return true
}

// Remove deletes the entry for a conversation, if present.
func (q *handoffQueue) Remove(conversationID string) bool {
	if _, ok := q.members[conversationID]; !ok {
		return false
	}
	delete(q.members, conversationID)
	for i, e := range q.order {
		if e.ConversationID == conversationID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports queue membership.
func (q *handoffQueue) Contains(conversationID string) bool {
	_, ok := q.members[conversationID]
	return ok
}

// Len returns the number of waiting conversations. Every queued entry is
// unassigned by construction, so this is also the live queue-position count.
func (q *handoffQueue) Len() int { return len(q.order) }

// Entries returns a priority-ordered copy: returning clients first, FIFO by
// enqueue time within each tier. The stable sort keeps insertion order for
// equal keys.
func (q *handoffQueue) Entries() []model.QueueEntry {
	out := make([]model.QueueEntry, len(q.order))
	copy(out, q.order)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Returning != out[j].Returning {
			return out[i].Returning
		}
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}
