package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/taiwa/internal/archive"
	"github.com/ashita-ai/taiwa/internal/collector"
	"github.com/ashita-ai/taiwa/internal/config"
	"github.com/ashita-ai/taiwa/internal/engine"
	"github.com/ashita-ai/taiwa/internal/ratelimit"
	"github.com/ashita-ai/taiwa/internal/responder"
	"github.com/ashita-ai/taiwa/internal/server"
	"github.com/ashita-ai/taiwa/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("TAIWA_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("taiwa starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Archive storage for completed conversations.
	writer, err := archive.NewWriter(cfg.ArchiveDir, logger)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	reader, err := archive.NewReader(cfg.ArchiveDir, cfg.ArchiveCacheSize, logger)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	// Responder: rules answer immediately; the OpenAI backend warms up in
	// the background and takes over once ready.
	rules, err := loadRuleResponder(cfg, logger)
	if err != nil {
		return err
	}
	var gen responder.Generator = rules
	var loader *responder.Loader
	if cfg.ResponderBackend == "openai" {
		loader = responder.NewLoader(rules, logger)
		loader.Load(ctx, func() (responder.Generator, error) {
			return responder.NewOpenAIResponder(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.ResponderTimeout, rules, logger)
		}, cfg.ResponderLoadTimeout)
		gen = loader
	}

	broker := server.NewBroker(logger)

	eng := engine.New(engine.Deps{
		Archive:    writer,
		History:    engine.NewHistoryIndex(reader, cfg.HistoryDedup),
		Responder:  gen,
		Suggester:  rules,
		Events:     broker,
		Logger:     logger,
		EvictLimit: cfg.EvictLimit,
	})

	// Rate limiter for the public chat endpoints.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}
	defer func() { _ = limiter.Close() }()

	srv := server.New(server.ServerConfig{
		Engine:              eng,
		Logger:              logger,
		Loader:              loader,
		Limiter:             limiter,
		Broker:              broker,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		AllowedOrigins:      cfg.CORSAllowedOrigins,
	})

	// One-shot training data collection when sources are configured.
	if len(cfg.CollectorURLs) > 0 {
		go runCollector(ctx, cfg, logger)
	}

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	slog.Info("taiwa shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	return nil
}

// loadRuleResponder builds the rule responder from the configured YAML file,
// or the built-in rule set when no file is given.
func loadRuleResponder(cfg config.Config, logger *slog.Logger) (*responder.RuleResponder, error) {
	if cfg.ResponderRulesPath == "" {
		return responder.NewRuleResponder(responder.DefaultRules()), nil
	}
	rules, err := responder.LoadRules(cfg.ResponderRulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	logger.Info("responder rules loaded", "path", cfg.ResponderRulesPath)
	return responder.NewRuleResponder(rules), nil
}

// runCollector harvests text from the configured pages once at startup.
func runCollector(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	sources := make([]collector.Source, 0, len(cfg.CollectorURLs))
	for _, url := range cfg.CollectorURLs {
		sources = append(sources, collector.NewWebSource(url))
	}

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	n, err := collector.NewRunner(sources, cfg.CollectorOutPath, logger).CollectAll(runCtx)
	if err != nil {
		logger.Warn("collector run failed", "error", err)
		return
	}
	logger.Info("collector run finished", "samples", n, "out", cfg.CollectorOutPath)
}
