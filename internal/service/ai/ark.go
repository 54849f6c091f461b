package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
)

const arkHistoryLimit = 20

// ArkProvider streams replies through an eino chain backed by Ark chat models,
// one compiled chain per tier.
type ArkProvider struct {
	systemPrompt string
	chains       map[chat.Tier]compose.Runnable[map[string]any, *schema.Message]
	logger       *zap.Logger
}

// NewArkProvider compiles a prompt+model chain for every tier in models.
func NewArkProvider(ctx context.Context, systemPrompt string, models map[chat.Tier]model.ChatModel, logger *zap.Logger) (*ArkProvider, error) {
	chains := make(map[chat.Tier]compose.Runnable[map[string]any, *schema.Message], len(models))
	for tier, chatModel := range models {
		runnable, err := compileChain(ctx, chatModel)
		if err != nil {
			return nil, fmt.Errorf("failed to compile chat chain for tier %s: %w", tier, err)
		}
		chains[tier] = runnable
	}

	return &ArkProvider{
		systemPrompt: systemPrompt,
		chains:       chains,
		logger:       logger,
	}, nil
}

func compileChain(ctx context.Context, chatModel model.ChatModel) (compose.Runnable[map[string]any, *schema.Message], error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	return chain.Compile(ctx)
}

// OpenStream streams the chain output as plain text chunks.
func (p *ArkProvider) OpenStream(ctx context.Context, sc SessionContext, message string, tier chat.Tier) (*schema.StreamReader[string], error) {
	runnable, ok := p.chains[tier]
	if !ok {
		return nil, fmt.Errorf("no ark model configured for tier %s", tier)
	}

	stream, err := runnable.Stream(ctx, p.buildChainInput(sc, message))
	if err != nil {
		return nil, fmt.Errorf("failed to stream ark chain output: %w", err)
	}

	p.logger.Debug("ark stream opened", zap.String("session", sc.SessionID), zap.String("tier", string(tier)))
	return schema.StreamReaderWithConvert(stream, messageText), nil
}

func (p *ArkProvider) buildChainInput(sc SessionContext, message string) map[string]any {
	return map[string]any{
		"system":  p.systemPrompt,
		"history": buildHistoryMessages(sc.History),
		"query":   message,
	}
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	messages = limitHistory(messages, arkHistoryLimit)
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}

// messageText drops chunks without text so the consumer only sees content.
func messageText(msg *schema.Message) (string, error) {
	if msg == nil || msg.Content == "" {
		return "", schema.ErrNoValue
	}
	return msg.Content, nil
}
