package stream

import (
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/analysis/segment"
	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	chatService "github.com/zhouzirui/syntra/backend/internal/service/chat"
	turnService "github.com/zhouzirui/syntra/backend/internal/service/stream"
)

// Event names shared by the SSE and WebSocket transports.
const (
	EventState   = "state"
	EventStart   = "start"
	EventDelta   = "delta"
	EventHistory = "history"
	EventMessage = "message"
	EventEnd     = "end"
	EventError   = "error"
)

// Event is one server push.
type Event struct {
	Event     string             `json:"event"`
	SessionID string             `json:"sessionId,omitempty"`
	Message   *chat.Message      `json:"message,omitempty"`
	Segments  []segment.Segment  `json:"segments,omitempty"`
	History   []chat.Session     `json:"history,omitempty"`
	State     *chatService.State `json:"state,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type emitFunc func(Event) error

// turnObserver turns session snapshots into start/delta events. The first
// snapshot of a turn carries the user message; later ones grow the reply.
type turnObserver struct {
	emit    emitFunc
	logger  *zap.Logger
	started bool
	last    string
	history []chat.Session
	err     error
}

func newTurnObserver(emit emitFunc, logger *zap.Logger) *turnObserver {
	return &turnObserver{emit: emit, logger: logger}
}

func (o *turnObserver) send(ev Event) {
	if o.err != nil {
		return
	}
	if err := o.emit(ev); err != nil {
		o.err = err
		o.logger.Debug("client gone, dropping events", zap.String("event", ev.Event), zap.Error(err))
	}
}

func (o *turnObserver) SessionUpdated(s chat.Session) {
	if len(s.Messages) < 2 {
		return
	}
	reply := *s.Last()

	if !o.started {
		o.started = true
		user := s.Messages[len(s.Messages)-2]
		o.send(Event{Event: EventStart, SessionID: s.ID, Message: &user})
		return
	}
	if reply.Failed || reply.Content == o.last {
		return
	}
	o.last = reply.Content
	o.send(Event{
		Event:     EventDelta,
		SessionID: s.ID,
		Message:   &reply,
		Segments:  segment.All(reply.Content),
	})
}

func (o *turnObserver) HistoryUpdated(sessions []chat.Session) {
	first := o.history == nil
	o.history = sessions
	if first {
		o.send(Event{Event: EventHistory, History: sessions})
	}
}

// finish emits the final reply followed by end, or a single error event for a
// failed turn.
func (o *turnObserver) finish(outcome turnService.Outcome) {
	reply := outcome.Reply
	if outcome.State == turnService.StateFailed {
		o.send(Event{
			Event:     EventError,
			SessionID: outcome.SessionID,
			Message:   &reply,
			Error:     reply.Content,
		})
	} else {
		o.send(Event{
			Event:     EventMessage,
			SessionID: outcome.SessionID,
			Message:   &reply,
			Segments:  segment.All(reply.Content),
		})
	}
	if o.history != nil {
		o.send(Event{Event: EventHistory, History: o.history})
	}
	o.send(Event{Event: EventEnd, SessionID: outcome.SessionID})
}
