package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
)

func draftSession() *chat.Session {
	s := chat.NewSession("s1", "u1", base)
	s.Append(chat.Message{ID: "m1", Role: chat.RoleUser, Content: "Hello", CreatedAt: base}, base)
	s.Append(chat.Message{ID: "m2", Role: chat.RoleAssistant, CreatedAt: base}, base)
	return s
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTurnAppliesTokensInOrder(t *testing.T) {
	s := draftSession()
	turn := newTurn(s, fixedNow(base.Add(time.Minute)))

	assert.Equal(t, allEffects, turn.Apply(TokenEvent{Text: "Hi"}))
	assert.Equal(t, allEffects, turn.Apply(TokenEvent{Text: " there"}))
	assert.Nil(t, turn.Apply(TokenEvent{}))
	assert.Equal(t, StateStreaming, turn.State())
	assert.Equal(t, "Hi there", turn.Draft().Content)
	assert.Equal(t, base.Add(time.Minute), s.LastUpdatedAt)

	assert.Equal(t, allEffects, turn.Apply(EndEvent{}))
	assert.Equal(t, StateDone, turn.State())
}

func TestTurnDiscardsEventsAfterTerminalState(t *testing.T) {
	s := draftSession()
	turn := newTurn(s, fixedNow(base))
	turn.Apply(TokenEvent{Text: "Par"})
	turn.Apply(ErrorEvent{Err: errors.New("boom")})

	require.Equal(t, StateFailed, turn.State())
	assert.Nil(t, turn.Apply(TokenEvent{Text: "late"}))
	assert.Nil(t, turn.Apply(EndEvent{}))
	assert.Nil(t, turn.Apply(CancelEvent{}))
	assert.Equal(t, FailureNotice, turn.Draft().Content)
	assert.True(t, turn.Draft().Failed)
	assert.Len(t, s.Messages, 2)
}

func TestTurnCancelIsDone(t *testing.T) {
	s := draftSession()
	turn := newTurn(s, fixedNow(base))
	turn.Apply(TokenEvent{Text: "Par"})

	assert.Equal(t, allEffects, turn.Apply(CancelEvent{}))
	assert.Equal(t, StateDone, turn.State())
	assert.Equal(t, "Par", turn.Draft().Content)
	assert.False(t, turn.Draft().Failed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.True(t, StateDone.Terminal())
	assert.False(t, StateStreaming.Terminal())
}
