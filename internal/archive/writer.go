// Package archive persists completed conversations as JSON files, one
// document per conversation. The files double as the client-history source
// and as training data for the offline fine-tuning pipeline; they are
// append-only and never rewritten.
package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ashita-ai/taiwa/internal/model"
)

// Writer serializes completed conversations to the archive directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates the archive directory if needed and returns a Writer.
func NewWriter(dir string, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create dir: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// Persist writes one archive record for the conversation and returns the
// file path. The filename embeds the conversation id and a write-time
// timestamp so retried archival calls never collide. The write goes through
// a temp file and rename so readers never observe a partial document.
func (w *Writer) Persist(c *model.Conversation) (string, error) {
	rec := BuildRecord(c)

	name := fmt.Sprintf("conversation_%s_%s.json", c.ID, c.EndTime.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("archive: marshal %s: %w", c.ID, err)
	}

	tmp, err := os.CreateTemp(w.dir, "conversation_*.tmp")
	if err != nil {
		return "", fmt.Errorf("archive: temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("archive: write %s: %w", c.ID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("archive: close %s: %w", c.ID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("archive: rename %s: %w", c.ID, err)
	}

	w.logger.Info("conversation archived",
		"conversation_id", c.ID,
		"file", name,
		"training_pairs", len(rec.TrainingData),
		"messages", rec.TotalMessages,
	)
	return path, nil
}

// BuildRecord derives the durable record from a conversation: training
// pairs from adjacent user→responder messages, aggregate interaction
// counts, and a verbatim transcript copy.
func BuildRecord(c *model.Conversation) model.ArchiveRecord {
	pairs := TrainingPairs(c)

	var metrics model.ArchiveMetrics
	for _, p := range pairs {
		switch p.InteractionType {
		case model.InteractionAI:
			metrics.AIInteractions++
		case model.InteractionHuman:
			metrics.HumanInteractions++
		}
	}
	metrics.TotalInteractions = metrics.AIInteractions + metrics.HumanInteractions

	history := make([]model.Message, len(c.Messages))
	copy(history, c.Messages)

	return model.ArchiveRecord{
		ConversationID:     c.ID,
		StartTime:          c.StartTime,
		EndTime:            c.EndTime,
		ClientData:         c.ClientData,
		TotalMessages:      len(c.Messages),
		Satisfaction:       c.Satisfaction,
		TransferredToHuman: c.TransferredToHuman,
		AssignedAgent:      c.AssignedAgent,
		AgentName:          c.AgentName,
		EndedBy:            c.EndedBy,
		Timing:             c.Timing,
		Metrics:            metrics,
		TrainingData:       pairs,
		FullChatHistory:    history,
	}
}

// TrainingPairs scans the transcript for each user message immediately
// followed by a bot or agent message. That adjacent pair becomes one
// training example; user messages with no qualifying successor are skipped
// but remain in the transcript.
func TrainingPairs(c *model.Conversation) []model.TrainingPair {
	var pairs []model.TrainingPair
	for i := 0; i+1 < len(c.Messages); i++ {
		in := c.Messages[i]
		if in.Type != model.MessageTypeUser {
			continue
		}
		out := c.Messages[i+1]
		if out.Type != model.MessageTypeBot && out.Type != model.MessageTypeAgent {
			continue
		}

		pair := model.TrainingPair{
			Input:           in.Content,
			Output:          out.Content,
			InteractionType: model.InteractionAI,
			Rating:          out.Rating,
			InputTimestamp:  in.Timestamp,
			OutputTimestamp: out.Timestamp,
		}
		if pair.Rating == "" {
			pair.Rating = model.RatingNeutral
		}
		if out.Type == model.MessageTypeAgent {
			pair.InteractionType = model.InteractionHuman
			pair.AgentID = out.AgentID
			pair.AgentName = c.AgentName
		}
		pairs = append(pairs, pair)
	}
	return pairs
}
