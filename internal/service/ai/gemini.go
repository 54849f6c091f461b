package ai

import (
	"context"
	"fmt"
	"iter"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
)

const geminiHistoryLimit = 40

type contentStreamer func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey         string
	Models         map[chat.Tier]string
	SystemPrompt   string
	Temperature    *float32
	ThinkingBudget int
}

// GeminiProvider streams replies from Google Gemini models.
type GeminiProvider struct {
	stream contentStreamer
	cfg    GeminiConfig
	logger *zap.Logger
}

// NewGeminiProvider creates a Gemini client for the given key.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{stream: client.Models.GenerateContentStream, cfg: cfg, logger: logger}, nil
}

// OpenStream starts a streaming generation and pipes text chunks into the
// returned reader. Closing the reader stops forwarding.
func (p *GeminiProvider) OpenStream(ctx context.Context, sc SessionContext, message string, tier chat.Tier) (*schema.StreamReader[string], error) {
	modelName := p.cfg.Models[tier]
	if modelName == "" {
		return nil, fmt.Errorf("no gemini model configured for tier %s", tier)
	}

	contents := buildGeminiContents(sc.History, message)
	config := p.generateConfig(tier)

	sr, sw := schema.Pipe[string](8)
	go func() {
		defer sw.Close()
		for resp, err := range p.stream(ctx, modelName, contents, config) {
			if err != nil {
				sw.Send("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if closed := sw.Send(text, nil); closed {
				return
			}
		}
	}()

	p.logger.Debug("gemini stream opened",
		zap.String("session", sc.SessionID),
		zap.String("model", modelName),
		zap.Int("history", len(sc.History)))
	return sr, nil
}

func (p *GeminiProvider) generateConfig(tier chat.Tier) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: p.cfg.Temperature,
	}
	if p.cfg.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(p.cfg.SystemPrompt, genai.RoleUser)
	}
	if tier == chat.TierPro && p.cfg.ThinkingBudget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(p.cfg.ThinkingBudget)),
		}
	}
	return config
}

func buildGeminiContents(history []chat.Message, message string) []*genai.Content {
	history = limitHistory(history, geminiHistoryLimit)
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == chat.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}
