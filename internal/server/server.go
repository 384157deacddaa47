package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashita-ai/taiwa/internal/engine"
	"github.com/ashita-ai/taiwa/internal/ratelimit"
	"github.com/ashita-ai/taiwa/internal/responder"
)

// Server is the chat platform HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and settings for creating a Server.
// Optional fields (nil-safe): Loader, Limiter, Broker.
type ServerConfig struct {
	Engine *engine.Engine
	Logger *slog.Logger

	Loader  *responder.Loader
	Limiter ratelimit.Limiter
	Broker  *Broker

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	AllowedOrigins      []string
}

// New creates an HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Engine:              cfg.Engine,
		Loader:              cfg.Loader,
		Broker:              cfg.Broker,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	// Only the public chat endpoints are rate limited; the agent console
	// sits behind the office network.
	chatRL := func(next http.Handler) http.Handler { return next }
	if cfg.Limiter != nil {
		chatRL = ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc, reqIDFunc)
	}

	mux := http.NewServeMux()

	// Client endpoints.
	mux.Handle("POST /chat/start", chatRL(http.HandlerFunc(h.HandleChatStart)))
	mux.Handle("POST /chat/message", chatRL(http.HandlerFunc(h.HandleChatMessage)))
	mux.Handle("POST /chat/transfer", chatRL(http.HandlerFunc(h.HandleChatTransfer)))
	mux.Handle("POST /chat/rate", chatRL(http.HandlerFunc(h.HandleChatRate)))
	mux.Handle("POST /chat/end", chatRL(http.HandlerFunc(h.HandleChatEnd)))
	mux.Handle("GET /chat/poll/{conversation_id}", chatRL(http.HandlerFunc(h.HandleChatPoll)))

	// Agent console endpoints.
	mux.HandleFunc("POST /admin/agent_login", h.HandleAgentLogin)
	mux.HandleFunc("POST /admin/accept", h.HandleAccept)
	mux.HandleFunc("POST /admin/send_message", h.HandleAgentSendMessage)
	mux.HandleFunc("POST /admin/end_conversation", h.HandleAgentEndConversation)
	mux.HandleFunc("GET /admin/conversation/{conversation_id}", h.HandleConversation)
	mux.HandleFunc("GET /admin/queue", h.HandleQueue)
	mux.HandleFunc("GET /admin/queue/events", h.HandleQueueEvents)
	mux.HandleFunc("GET /admin/agents", h.HandleAgents)
	mux.HandleFunc("GET /admin/clients", h.HandleClients)
	mux.HandleFunc("GET /admin/stats", h.HandleStats)
	mux.HandleFunc("GET /admin/time_metrics", h.HandleTimeMetrics)
	mux.HandleFunc("GET /admin/client_history/{email}", h.HandleClientHistory)

	// Health (no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → CORS → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = corsMiddleware(cfg.AllowedOrigins, handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
