package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/config"
	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/model/persona"
)

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.AIConfig, personas persona.Store, logger *zap.Logger) (Provider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: credentials for %s are not configured", ErrProviderUnavailable, cfg.Provider)
	}

	p, ok := persona.Resolve(personas, cfg.PersonaID)
	if !ok {
		return nil, fmt.Errorf("persona %s not found", cfg.PersonaID)
	}
	systemPrompt := BuildSystemPrompt(p)

	models := map[chat.Tier]string{
		chat.TierFlash: cfg.ModelFor(chat.TierFlash),
		chat.TierPro:   cfg.ModelFor(chat.TierPro),
	}

	var temperature *float32
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		temperature = &val
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, GeminiConfig{
			APIKey:         cfg.GeminiAPIKey,
			Models:         models,
			SystemPrompt:   systemPrompt,
			Temperature:    temperature,
			ThinkingBudget: cfg.ThinkingBudget,
		}, logger)
	case config.ProviderOpenAI:
		maxTokens := 0
		if cfg.MaxTokens != nil {
			maxTokens = *cfg.MaxTokens
		}
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:       cfg.OpenAIAPIKey,
			BaseURL:      cfg.OpenAIBaseURL,
			Referrer:     cfg.OpenRouterReferrer,
			Title:        cfg.OpenRouterTitle,
			Models:       models,
			SystemPrompt: systemPrompt,
			Temperature:  temperature,
			MaxTokens:    maxTokens,
		}, logger), nil
	case config.ProviderArk:
		chatModels := make(map[chat.Tier]model.ChatModel, len(models))
		for tier, name := range models {
			if name == "" {
				continue
			}
			cm, err := cfg.NewArkChatModel(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to create ark model for tier %s: %w", tier, err)
			}
			chatModels[tier] = cm
		}
		if len(chatModels) == 0 {
			return nil, fmt.Errorf("%w: set AI_FLASH_MODEL / AI_PRO_MODEL to Ark endpoint ids", ErrProviderUnavailable)
		}
		return NewArkProvider(ctx, systemPrompt, chatModels, logger)
	default:
		return nil, fmt.Errorf("unknown ai provider: %s", cfg.Provider)
	}
}
