package stream

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/handler/apierr"
	"github.com/zhouzirui/syntra/backend/internal/middleware"
	chatService "github.com/zhouzirui/syntra/backend/internal/service/chat"
	"github.com/zhouzirui/syntra/backend/pkg/utils"
)

// Handler streams chat turns over Server-Sent Events and WebSocket.
type Handler struct {
	hub    *chatService.Hub
	logger *zap.Logger
}

// New creates a new stream handler
func New(hub *chatService.Hub, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// sseWriter sends headers lazily so that rejections before the first event
// still get a regular JSON error response.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseWriter) emit(ev Event) error {
	if !s.started {
		s.started = true
		utils.SetupSSEHeaders(s.w)
		s.w.WriteHeader(http.StatusOK)
	}
	return utils.SendSSEEvent(s.w, s.flusher, ev.Event, ev)
}

// HandleSSE runs one turn for ?message= and streams its progress. It returns
// once the reply is finished or the client disconnects.
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	c, err := h.hub.Controller(ctx, middleware.UserID(ctx))
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	sse := &sseWriter{w: w, flusher: flusher}
	obs := newTurnObserver(sse.emit, h.logger)

	outcome, err := c.Send(ctx, message, obs)
	if err != nil {
		if !sse.started {
			apierr.Respond(w, err)
			return
		}
		obs.send(Event{Event: EventError, Error: err.Error()})
		return
	}
	obs.finish(outcome)

	h.logger.Info("sse turn completed",
		zap.String("user", c.UserID()),
		zap.String("session", outcome.SessionID),
		zap.Stringer("state", outcome.State))
}
