package responder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Loader wraps the active generator behind a one-shot asynchronous backend
// initialization. It starts answering from the fallback immediately; if the
// real backend comes up within the load timeout it is swapped in, otherwise
// the process stays in fallback mode permanently. There is no retry.
type Loader struct {
	mu     sync.RWMutex
	active Generator
	ready  bool

	logger *slog.Logger
}

// NewLoader creates a loader that answers from fallback until Load swaps in
// a real backend.
func NewLoader(fallback Generator, logger *slog.Logger) *Loader {
	return &Loader{active: fallback, logger: logger}
}

// Load runs init in the background and waits up to timeout for it. On
// success the returned generator becomes the active one. On error or
// timeout the loader keeps the fallback; a late init result is discarded.
// Load returns once the outcome is known or the timeout elapsed.
func (l *Loader) Load(ctx context.Context, init func() (Generator, error), timeout time.Duration) {
	type result struct {
		gen Generator
		err error
	}
	ch := make(chan result, 1)
	go func() {
		gen, err := init()
		ch <- result{gen, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			l.logger.Warn("responder: backend init failed, staying in fallback mode", "error", res.err)
			return
		}
		l.mu.Lock()
		l.active = res.gen
		l.ready = true
		l.mu.Unlock()
		l.logger.Info("responder: backend ready")
	case <-time.After(timeout):
		l.logger.Warn("responder: backend init timed out, staying in fallback mode",
			"timeout", timeout)
	case <-ctx.Done():
		l.logger.Warn("responder: backend init cancelled, staying in fallback mode")
	}
}

// Ready reports whether the real backend was swapped in.
func (l *Loader) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}

// Reply delegates to the currently active generator.
func (l *Loader) Reply(ctx context.Context, conversationID, text string) (string, error) {
	l.mu.RLock()
	gen := l.active
	l.mu.RUnlock()
	return gen.Reply(ctx, conversationID, text)
}
