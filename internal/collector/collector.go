// Package collector harvests raw text samples from external sources (web
// pages, mailboxes) for the offline fine-tuning pipeline. Collection is
// best-effort and per-source isolated: one unreachable source never aborts
// the others.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Sample is one harvested text fragment.
type Sample struct {
	Source      string    `json:"source"`
	Text        string    `json:"text"`
	CollectedAt time.Time `json:"collected_at"`
}

// Source produces samples from one external origin.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]Sample, error)
}

// MailboxSource is a Source backed by a mailbox. The polling implementation
// lives outside this module; this contract is what the runner consumes.
type MailboxSource interface {
	Source
	// Address identifies the mailbox being polled.
	Address() string
}

// maxConcurrentSources bounds the collection fan-out.
const maxConcurrentSources = 4

// Runner fans collection out over all sources and appends the results to a
// JSONL file.
type Runner struct {
	sources []Source
	outPath string
	logger  *slog.Logger
}

// NewRunner creates a Runner writing to outPath.
func NewRunner(sources []Source, outPath string, logger *slog.Logger) *Runner {
	return &Runner{sources: sources, outPath: outPath, logger: logger}
}

// CollectAll runs every source concurrently and appends the collected
// samples. A failing source is logged and skipped. Returns the number of
// samples written.
func (r *Runner) CollectAll(ctx context.Context) (int, error) {
	var (
		mu      sync.Mutex
		samples []Sample
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSources)
	for _, src := range r.sources {
		g.Go(func() error {
			got, err := src.Collect(ctx)
			if err != nil {
				// Isolation: log and move on, never fail the group.
				r.logger.Warn("collector: source failed", "source", src.Name(), "error", err)
				return nil
			}
			mu.Lock()
			samples = append(samples, got...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(samples) == 0 {
		return 0, nil
	}
	if err := r.append(samples); err != nil {
		return 0, err
	}
	r.logger.Info("collector: run complete", "sources", len(r.sources), "samples", len(samples))
	return len(samples), nil
}

func (r *Runner) append(samples []Sample) error {
	if err := os.MkdirAll(filepath.Dir(r.outPath), 0o755); err != nil {
		return fmt.Errorf("collector: create dir: %w", err)
	}
	f, err := os.OpenFile(r.outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("collector: open output: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	for _, s := range samples {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("collector: write sample: %w", err)
		}
	}
	return nil
}
