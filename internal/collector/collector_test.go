package collector_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/taiwa/internal/collector"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingSource always errors.
type failingSource struct{}

func (failingSource) Name() string { return "broken" }
func (failingSource) Collect(context.Context) ([]collector.Sample, error) {
	return nil, errors.New("unreachable")
}

const page = `<html><head><style>p{color:red}</style></head><body>
<h1>Central de ajuda da loja</h1>
<p>Nosso atendimento funciona de segunda a sexta, das 8h às 18h.</p>
<p>ok</p>
<script>console.log("este texto não deve aparecer em lugar nenhum")</script>
<li>Trocas podem ser solicitadas em até 30 dias.</li>
</body></html>`

func TestWebSource_ExtractsContentText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	samples, err := collector.NewWebSource(srv.URL).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 3) // h1 + long p + li; "ok" is too short

	var all string
	for _, s := range samples {
		assert.Equal(t, srv.URL, s.Source)
		all += s.Text + "\n"
	}
	assert.Contains(t, all, "Central de ajuda")
	assert.Contains(t, all, "segunda a sexta")
	assert.Contains(t, all, "30 dias")
	assert.NotContains(t, all, "console.log")
}

func TestWebSource_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := collector.NewWebSource(srv.URL).Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestRunner_FailingSourceDoesNotAbortOthers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "coleta", "samples.jsonl")
	r := collector.NewRunner([]collector.Source{
		failingSource{},
		collector.NewWebSource(srv.URL),
	}, out, discardLogger())

	n, err := r.CollectAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var s collector.Sample
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &s))
		assert.NotEmpty(t, s.Text)
		lines++
	}
	assert.Equal(t, 3, lines)
}

func TestRunner_NoSamplesWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "samples.jsonl")
	r := collector.NewRunner([]collector.Source{failingSource{}}, out, discardLogger())

	n, err := r.CollectAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}
