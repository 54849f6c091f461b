package ai

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
)

// ErrProviderUnavailable is returned when no model provider is configured.
var ErrProviderUnavailable = errors.New("model provider unavailable")

// SessionContext is the conversation a new message is sent into.
type SessionContext struct {
	SessionID string
	History   []chat.Message
}

// Provider opens a token stream for one user message. The returned reader
// yields text chunks in order and ends with io.EOF, or with the provider error.
// Callers must Close the reader. Implementations should stop writing once ctx
// is cancelled or the reader is closed.
type Provider interface {
	OpenStream(ctx context.Context, sc SessionContext, message string, tier chat.Tier) (*schema.StreamReader[string], error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, sc SessionContext, message string, tier chat.Tier) (*schema.StreamReader[string], error)

func (f ProviderFunc) OpenStream(ctx context.Context, sc SessionContext, message string, tier chat.Tier) (*schema.StreamReader[string], error) {
	return f(ctx, sc, message, tier)
}

// ContextFor builds the provider context from a session. Failed replies and
// empty drafts are not part of the model-visible history.
func ContextFor(session chat.Session) SessionContext {
	history := make([]chat.Message, 0, len(session.Messages))
	for _, msg := range session.Messages {
		if msg.Failed || msg.Content == "" {
			continue
		}
		history = append(history, msg)
	}
	return SessionContext{SessionID: session.ID, History: history}
}

// limitHistory keeps the newest n messages.
func limitHistory(messages []chat.Message, n int) []chat.Message {
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
