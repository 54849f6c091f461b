package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/handler/apierr"
	"github.com/zhouzirui/syntra/backend/internal/middleware"
	chatService "github.com/zhouzirui/syntra/backend/internal/service/chat"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 54 * time.Second
)

// Inbound message types.
const (
	MessageSend  = "send"
	MessageState = "state"
)

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// WebSocketHandler runs chat turns over a WebSocket connection.
type WebSocketHandler struct {
	hub      *chatService.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(hub *chatService.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// wsConn serialises writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) emit(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(ev)
}

// HandleWebSocket serves one connection. Every send message starts a turn;
// when the connection drops, a running reply ends with the content received so far.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	c, err := h.hub.Controller(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var turns sync.WaitGroup
	defer turns.Wait()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	logger := h.logger.With(zap.String("user", c.UserID()))
	logger.Info("websocket connected")

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	ws := &wsConn{conn: conn}
	go h.pingLoop(ctx, conn)

	state := c.Snapshot()
	ws.emit(Event{Event: EventState, SessionID: state.SessionID, State: &state})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch msg.Type {
		case MessageSend:
			turns.Add(1)
			go func(text string) {
				defer turns.Done()
				h.runTurn(ctx, c, text, ws, logger)
			}(msg.Text)
		case MessageState:
			state := c.Snapshot()
			ws.emit(Event{Event: EventState, SessionID: state.SessionID, State: &state})
		default:
			ws.emit(Event{Event: EventError, Error: "unknown message type: " + msg.Type})
		}
	}
}

func (h *WebSocketHandler) runTurn(ctx context.Context, c *chatService.Controller, text string, ws *wsConn, logger *zap.Logger) {
	obs := newTurnObserver(ws.emit, logger)
	outcome, err := c.Send(ctx, text, obs)
	if err != nil {
		ws.emit(Event{Event: EventError, Error: err.Error()})
		return
	}
	obs.finish(outcome)
	logger.Info("websocket turn completed",
		zap.String("session", outcome.SessionID),
		zap.Stringer("state", outcome.State))
}

// pingLoop keeps the connection alive until ctx is done.
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
