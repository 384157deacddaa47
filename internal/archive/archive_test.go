package archive_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/taiwa/internal/archive"
	"github.com/ashita-ai/taiwa/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleConversation(t *testing.T) *model.Conversation {
	t.Helper()
	base := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	return &model.Conversation{
		ID: "abc-123",
		ClientData: model.ClientData{
			Name:  "Ana",
			Email: "ana@example.com",
		},
		State:              model.StateCompleted,
		TransferredToHuman: true,
		AssignedAgent:      "ag1",
		AgentName:          "Carlos",
		Satisfaction:       "positive",
		StartTime:          base,
		EndTime:            base.Add(10 * time.Minute),
		EndedBy:            "agent",
		Timing: model.TimingMetrics{
			TotalHumanTimeSeconds: 300,
		},
		Messages: []model.Message{
			{Type: model.MessageTypeBot, Content: "Olá!", Timestamp: base},
			{Type: model.MessageTypeUser, Content: "cadê meu pedido?", Timestamp: base.Add(time.Minute)},
			{Type: model.MessageTypeBot, Content: "Me informe o número do pedido.", Timestamp: base.Add(2 * time.Minute)},
			{Type: model.MessageTypeUser, Content: "quero falar com atendente", Timestamp: base.Add(3 * time.Minute)},
			{Type: model.MessageTypeSystem, Content: "Transferindo...", Timestamp: base.Add(3 * time.Minute)},
			{Type: model.MessageTypeUser, Content: "alguém aí?", Timestamp: base.Add(4 * time.Minute)},
			{Type: model.MessageTypeAgent, Content: "Oi Ana, já verifico.", Timestamp: base.Add(5 * time.Minute), AgentID: "ag1"},
		},
	}
}

func TestTrainingPairs_AdjacentPairsOnly(t *testing.T) {
	c := sampleConversation(t)
	pairs := archive.TrainingPairs(c)

	// user→bot at index 1→2, user→agent at 5→6. The user message at index 3
	// is followed by a system message and must be excluded.
	require.Len(t, pairs, 2)

	assert.Equal(t, "cadê meu pedido?", pairs[0].Input)
	assert.Equal(t, model.InteractionAI, pairs[0].InteractionType)
	assert.Equal(t, model.RatingNeutral, pairs[0].Rating)

	assert.Equal(t, "alguém aí?", pairs[1].Input)
	assert.Equal(t, "Oi Ana, já verifico.", pairs[1].Output)
	assert.Equal(t, model.InteractionHuman, pairs[1].InteractionType)
	assert.Equal(t, "ag1", pairs[1].AgentID)
	assert.Equal(t, "Carlos", pairs[1].AgentName)
}

func TestTrainingPairs_RatedOutputKeepsRating(t *testing.T) {
	base := time.Now()
	c := &model.Conversation{
		Messages: []model.Message{
			{Type: model.MessageTypeUser, Content: "oi", Timestamp: base},
			{Type: model.MessageTypeBot, Content: "olá", Timestamp: base, Rating: model.RatingPositive},
		},
	}
	pairs := archive.TrainingPairs(c)
	require.Len(t, pairs, 1)
	assert.Equal(t, model.RatingPositive, pairs[0].Rating)
}

func TestBuildRecord_MetricsAndTranscript(t *testing.T) {
	c := sampleConversation(t)
	rec := archive.BuildRecord(c)

	assert.Equal(t, 1, rec.Metrics.AIInteractions)
	assert.Equal(t, 1, rec.Metrics.HumanInteractions)
	assert.Equal(t, 2, rec.Metrics.TotalInteractions)
	assert.Equal(t, len(c.Messages), rec.TotalMessages)
	assert.Len(t, rec.FullChatHistory, len(c.Messages))
	assert.True(t, rec.TransferredToHuman)
	assert.Equal(t, "Carlos", rec.AgentName)
}

func TestWriter_PersistAndReadBack(t *testing.T) {
	dir := t.TempDir()
	w, err := archive.NewWriter(dir, discardLogger())
	require.NoError(t, err)

	c := sampleConversation(t)
	path, err := w.Persist(c)
	require.NoError(t, err)
	assert.Equal(t, "conversation_abc-123_20260830_141000.json", filepath.Base(path))

	r, err := archive.NewReader(dir, 16, discardLogger())
	require.NoError(t, err)

	recs, err := r.ByEmail("ANA@example.com")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "abc-123", recs[0].ConversationID)
	assert.Equal(t, len(c.Messages), recs[0].TotalMessages)
	assert.Len(t, recs[0].TrainingData, 2)
}

func TestWriter_DuplicatePersistDoesNotCollide(t *testing.T) {
	dir := t.TempDir()
	w, err := archive.NewWriter(dir, discardLogger())
	require.NoError(t, err)

	c := sampleConversation(t)
	p1, err := w.Persist(c)
	require.NoError(t, err)

	c.EndTime = c.EndTime.Add(time.Second) // retried close gets a fresh stamp
	p2, err := w.Persist(c)
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReader_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := archive.NewWriter(dir, discardLogger())
	require.NoError(t, err)
	_, err = w.Persist(sampleConversation(t))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "conversation_bad_x.json"), []byte("{"), 0o644))

	r, err := archive.NewReader(dir, 16, discardLogger())
	require.NoError(t, err)
	recs, err := r.ByEmail("ana@example.com")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestReader_UnknownEmail(t *testing.T) {
	r, err := archive.NewReader(t.TempDir(), 16, discardLogger())
	require.NoError(t, err)

	recs, err := r.ByEmail("ninguem@example.com")
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = r.ByEmail("sem-arroba")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
