package responder_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/taiwa/internal/responder"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticGen(reply string) responder.Generator {
	return responder.GeneratorFunc(func(context.Context, string, string) (string, error) {
		return reply, nil
	})
}

func TestLoader_AnswersFromFallbackBeforeLoad(t *testing.T) {
	l := responder.NewLoader(staticGen("fallback"), discardLogger())

	reply, err := l.Reply(context.Background(), "c1", "oi")
	require.NoError(t, err)
	assert.Equal(t, "fallback", reply)
	assert.False(t, l.Ready())
}

func TestLoader_SwapsInBackendOnSuccess(t *testing.T) {
	l := responder.NewLoader(staticGen("fallback"), discardLogger())

	l.Load(context.Background(), func() (responder.Generator, error) {
		return staticGen("real"), nil
	}, time.Second)

	require.True(t, l.Ready())
	reply, err := l.Reply(context.Background(), "c1", "oi")
	require.NoError(t, err)
	assert.Equal(t, "real", reply)
}

func TestLoader_StaysInFallbackOnInitError(t *testing.T) {
	l := responder.NewLoader(staticGen("fallback"), discardLogger())

	l.Load(context.Background(), func() (responder.Generator, error) {
		return nil, errors.New("model unavailable")
	}, time.Second)

	assert.False(t, l.Ready())
	reply, err := l.Reply(context.Background(), "c1", "oi")
	require.NoError(t, err)
	assert.Equal(t, "fallback", reply)
}

func TestLoader_StaysInFallbackOnTimeout(t *testing.T) {
	l := responder.NewLoader(staticGen("fallback"), discardLogger())

	block := make(chan struct{})
	defer close(block)
	l.Load(context.Background(), func() (responder.Generator, error) {
		<-block
		return staticGen("late"), nil
	}, 20*time.Millisecond)

	assert.False(t, l.Ready())
	reply, err := l.Reply(context.Background(), "c1", "oi")
	require.NoError(t, err)
	assert.Equal(t, "fallback", reply)
}
