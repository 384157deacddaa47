package engine

import (
	"math"
	"sort"
	"strconv"

	"github.com/ashita-ai/taiwa/internal/model"
)

// summaryMaxLen caps the one-line summary derived from the first user message.
const summaryMaxLen = 100

// ArchiveSource is the archive read path the history index consults.
type ArchiveSource interface {
	ByEmail(email string) ([]model.ArchiveRecord, error)
}

// HistoryIndex reconstructs a client's past conversations from the live
// store and the archive, keyed by normalized email. The two sources can
// both contain a conversation once it is archived while still held in
// memory; with dedup enabled the memory copy wins.
type HistoryIndex struct {
	archive ArchiveSource
	dedup   bool
}

// NewHistoryIndex creates a history index over the given archive source.
func NewHistoryIndex(archive ArchiveSource, dedup bool) *HistoryIndex {
	return &HistoryIndex{archive: archive, dedup: dedup}
}

// Lookup merges live summaries with archived records for the email and
// returns them most recent first. Summaries without a start timestamp sort
// last. Archive read failures degrade to the live view only.
func (h *HistoryIndex) Lookup(email string, live []model.ConversationSummary) ([]model.ConversationSummary, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	out := make([]model.ConversationSummary, 0, len(live))
	seen := make(map[string]struct{}, len(live))
	for _, s := range live {
		out = append(out, s)
		seen[s.ConversationID] = struct{}{}
	}

	records, err := h.archive.ByEmail(email)
	if err != nil {
		sortSummaries(out)
		return out, err
	}
	for _, rec := range records {
		if h.dedup {
			if _, ok := seen[rec.ConversationID]; ok {
				continue
			}
		}
		out = append(out, SummarizeRecord(rec))
	}

	sortSummaries(out)
	return out, nil
}

// Summarize builds the one-line view of a live conversation.
func Summarize(c *model.Conversation) model.ConversationSummary {
	return model.ConversationSummary{
		ConversationID:   c.ID,
		StartTime:        c.StartTime,
		EndTime:          c.EndTime,
		Summary:          summaryLine(c.FirstUserMessage(), len(c.Messages)),
		Satisfaction:     c.Satisfaction,
		Transferred:      c.TransferredToHuman,
		TotalMessages:    len(c.Messages),
		HumanTimeMinutes: humanMinutes(c.Timing.TotalHumanTimeSeconds),
		Source:           model.SourceMemory,
	}
}

// SummarizeRecord builds the one-line view of an archived conversation.
func SummarizeRecord(rec model.ArchiveRecord) model.ConversationSummary {
	first := ""
	for _, m := range rec.FullChatHistory {
		if m.Type == model.MessageTypeUser {
			first = m.Content
			break
		}
	}
	return model.ConversationSummary{
		ConversationID:   rec.ConversationID,
		StartTime:        rec.StartTime,
		EndTime:          rec.EndTime,
		Summary:          summaryLine(first, rec.TotalMessages),
		Satisfaction:     rec.Satisfaction,
		Transferred:      rec.TransferredToHuman,
		TotalMessages:    rec.TotalMessages,
		HumanTimeMinutes: humanMinutes(rec.Timing.TotalHumanTimeSeconds),
		Source:           model.SourceFile,
	}
}

func summaryLine(firstUserMessage string, totalMessages int) string {
	if firstUserMessage != "" {
		return truncateSummary(firstUserMessage, summaryMaxLen)
	}
	if totalMessages == 1 {
		return "Conversa com 1 mensagem"
	}
	return "Conversa com " + strconv.Itoa(totalMessages) + " mensagens"
}

func humanMinutes(seconds float64) float64 {
	return math.Round(seconds/60*10) / 10
}

func sortSummaries(s []model.ConversationSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		ti, tj := s[i].StartTime, s[j].StartTime
		if ti.IsZero() != tj.IsZero() {
			return !ti.IsZero()
		}
		return ti.After(tj)
	})
}
