package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashita-ai/taiwa/internal/engine"
	"github.com/ashita-ai/taiwa/internal/model"
	"github.com/ashita-ai/taiwa/internal/responder"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	engine  *engine.Engine
	loader  *responder.Loader
	broker  *Broker
	logger  *slog.Logger
	version string

	maxRequestBodyBytes int64
	startTime           time.Time
}

// HandlersDeps holds dependencies for creating Handlers.
// Optional (nil-safe): Loader, Broker.
type HandlersDeps struct {
	Engine              *engine.Engine
	Loader              *responder.Loader
	Broker              *Broker
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates the handler set.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		engine:              d.Engine,
		loader:              d.Loader,
		broker:              d.Broker,
		logger:              d.Logger,
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		startTime:           time.Now(),
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	responderState := "ready"
	if h.loader != nil && !h.loader.Ready() {
		responderState = "fallback"
	}
	writeJSON(w, r, http.StatusOK, model.HealthResponse{
		Status:     "ok",
		Version:    h.version,
		Responder:  responderState,
		QueueDepth: h.engine.QueueDepth(),
		Uptime:     int64(time.Since(h.startTime).Seconds()),
	})
}

// writeEngineError maps engine errors onto HTTP status codes and the
// standard error envelope.
func (h *Handlers) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, err.Error())
	case errors.Is(err, engine.ErrAccessDenied):
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, err.Error())
	case errors.Is(err, engine.ErrInvalidInput),
		errors.Is(err, engine.ErrMessageTooLong),
		errors.Is(err, engine.ErrOutOfRange),
		errors.Is(err, engine.ErrNotQueued):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
	case errors.Is(err, engine.ErrConversationClosed),
		errors.Is(err, engine.ErrAlreadyAssigned),
		errors.Is(err, engine.ErrAlreadyRated):
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, err.Error())
	default:
		h.logger.Error("handler error", "error", err, "path", r.URL.Path)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
	}
}
