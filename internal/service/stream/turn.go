package stream

import (
	"time"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
)

// FailureNotice replaces the draft reply when a turn fails.
const FailureNotice = "Sorry, something went wrong. Please check your connection and try again."

// State is the lifecycle position of a turn.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further event can change the turn.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Event drives a Turn.
type Event interface {
	event()
}

// TokenEvent carries one chunk of model output.
type TokenEvent struct {
	Text string
}

// EndEvent marks a normally completed stream.
type EndEvent struct{}

// ErrorEvent marks a stream that terminated with Err.
type ErrorEvent struct {
	Err error
}

// CancelEvent marks a turn abandoned by the caller. Partial content is kept.
type CancelEvent struct{}

func (TokenEvent) event()  {}
func (EndEvent) event()    {}
func (ErrorEvent) event()  {}
func (CancelEvent) event() {}

// Effect is a side effect requested by a state transition.
type Effect int

const (
	PersistEffect Effect = iota + 1
	PublishEffect
	RefreshHistoryEffect
)

var allEffects = []Effect{PersistEffect, PublishEffect, RefreshHistoryEffect}

// Turn is the reducer for one assistant reply. It owns the draft message,
// which is the last message of the session.
type Turn struct {
	session *chat.Session
	draft   int
	state   State
	chunks  int
	err     error
	now     func() time.Time
}

func newTurn(session *chat.Session, now func() time.Time) *Turn {
	return &Turn{
		session: session,
		draft:   len(session.Messages) - 1,
		state:   StateStreaming,
		now:     now,
	}
}

// State returns the current lifecycle state.
func (t *Turn) State() State { return t.state }

// Draft returns a copy of the assistant message being built.
func (t *Turn) Draft() chat.Message { return t.session.Messages[t.draft] }

// Apply advances the turn and returns the effects the caller must run, in order.
// Events after a terminal state are discarded.
func (t *Turn) Apply(ev Event) []Effect {
	if t.state != StateStreaming {
		return nil
	}

	draft := &t.session.Messages[t.draft]
	switch ev := ev.(type) {
	case TokenEvent:
		if ev.Text == "" {
			return nil
		}
		draft.Content += ev.Text
		t.chunks++
	case EndEvent:
		t.state = StateDone
	case CancelEvent:
		t.state = StateDone
	case ErrorEvent:
		t.state = StateFailed
		t.err = ev.Err
		draft.Content = FailureNotice
		draft.Failed = true
	default:
		return nil
	}

	t.session.Touch(t.now())
	return allEffects
}
