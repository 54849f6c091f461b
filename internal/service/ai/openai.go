package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
)

const openAIHistoryLimit = 40

// OpenAIConfig configures an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Referrer     string
	Title        string
	Models       map[chat.Tier]string
	SystemPrompt string
	Temperature  *float32
	MaxTokens    int
}

// OpenAIProvider streams replies from an OpenAI-compatible chat completion API.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger *zap.Logger
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

// NewOpenAIProvider builds the client. Referrer and Title are sent as
// OpenRouter attribution headers when set.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Referrer != "" || cfg.Title != "" {
		h := http.Header{}
		if cfg.Referrer != "" {
			h.Set("HTTP-Referer", cfg.Referrer)
		}
		if cfg.Title != "" {
			h.Set("X-Title", cfg.Title)
		}
		config.HTTPClient = &http.Client{Transport: headerTransport{rt: http.DefaultTransport, headers: h}}
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		logger: logger,
	}
}

// OpenStream starts a chat completion stream and forwards content deltas.
func (p *OpenAIProvider) OpenStream(ctx context.Context, sc SessionContext, message string, tier chat.Tier) (*schema.StreamReader[string], error) {
	req, err := p.buildRequest(sc, message, tier)
	if err != nil {
		return nil, err
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion stream: %w", err)
	}

	sr, sw := schema.Pipe[string](8)
	go func() {
		defer sw.Close()
		defer stream.Close()
		for {
			resp, recvErr := stream.Recv()
			if errors.Is(recvErr, io.EOF) {
				return
			}
			if recvErr != nil {
				sw.Send("", fmt.Errorf("openai stream: %w", recvErr))
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if closed := sw.Send(resp.Choices[0].Delta.Content, nil); closed {
				return
			}
		}
	}()

	p.logger.Debug("openai stream opened", zap.String("session", sc.SessionID), zap.String("model", req.Model))
	return sr, nil
}

func (p *OpenAIProvider) buildRequest(sc SessionContext, message string, tier chat.Tier) (openai.ChatCompletionRequest, error) {
	modelName := p.cfg.Models[tier]
	if modelName == "" {
		return openai.ChatCompletionRequest{}, fmt.Errorf("no openai model configured for tier %s", tier)
	}

	history := limitHistory(sc.History, openAIHistoryLimit)
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if p.cfg.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.cfg.SystemPrompt})
	}
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	req := openai.ChatCompletionRequest{
		Model:     modelName,
		Messages:  msgs,
		Stream:    true,
		MaxTokens: p.cfg.MaxTokens,
	}
	if p.cfg.Temperature != nil {
		req.Temperature = *p.cfg.Temperature
	}
	return req, nil
}
