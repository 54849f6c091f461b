package ai

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zhouzirui/syntra/backend/internal/config"
	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/model/persona"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func fakeStreamer(chunks []string, failWith error) contentStreamer {
	return func(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
		return func(yield func(*genai.GenerateContentResponse, error) bool) {
			for _, c := range chunks {
				if !yield(textResponse(c), nil) {
					return
				}
			}
			if failWith != nil {
				yield(nil, failWith)
			}
		}
	}
}

func drain(t *testing.T, sr *schema.StreamReader[string]) ([]string, error) {
	t.Helper()
	defer sr.Close()
	var out []string
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, chunk)
	}
}

func TestGeminiProviderStreamsChunks(t *testing.T) {
	p := &GeminiProvider{
		stream: fakeStreamer([]string{"Hi", "", " there"}, nil),
		cfg:    GeminiConfig{Models: map[chat.Tier]string{chat.TierFlash: "flash"}},
		logger: zap.NewNop(),
	}

	sr, err := p.OpenStream(context.Background(), SessionContext{SessionID: "s"}, "Hello", chat.TierFlash)
	require.NoError(t, err)

	chunks, err := drain(t, sr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there"}, chunks)
}

func TestGeminiProviderForwardsError(t *testing.T) {
	boom := errors.New("quota exceeded")
	p := &GeminiProvider{
		stream: fakeStreamer([]string{"Par"}, boom),
		cfg:    GeminiConfig{Models: map[chat.Tier]string{chat.TierFlash: "flash"}},
		logger: zap.NewNop(),
	}

	sr, err := p.OpenStream(context.Background(), SessionContext{}, "Hello", chat.TierFlash)
	require.NoError(t, err)

	chunks, err := drain(t, sr)
	assert.Equal(t, []string{"Par"}, chunks)
	assert.ErrorIs(t, err, boom)
}

func TestGeminiProviderUnknownTier(t *testing.T) {
	p := &GeminiProvider{cfg: GeminiConfig{}, logger: zap.NewNop()}
	_, err := p.OpenStream(context.Background(), SessionContext{}, "Hello", chat.TierPro)
	assert.Error(t, err)
}

func TestGeminiConfigThinkingOnlyForPro(t *testing.T) {
	p := &GeminiProvider{cfg: GeminiConfig{SystemPrompt: "sys", ThinkingBudget: 2048}, logger: zap.NewNop()}

	flash := p.generateConfig(chat.TierFlash)
	assert.Nil(t, flash.ThinkingConfig)
	require.NotNil(t, flash.SystemInstruction)

	pro := p.generateConfig(chat.TierPro)
	require.NotNil(t, pro.ThinkingConfig)
	assert.Equal(t, int32(2048), *pro.ThinkingConfig.ThinkingBudget)
}

func TestBuildGeminiContentsMapsRoles(t *testing.T) {
	contents := buildGeminiContents([]chat.Message{
		{Role: chat.RoleUser, Content: "q1"},
		{Role: chat.RoleAssistant, Content: "a1"},
	}, "q2")

	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "q2", contents[2].Parts[0].Text)
}

func TestContextForSkipsFailedAndEmptyMessages(t *testing.T) {
	session := chat.Session{ID: "s", Messages: []chat.Message{
		{Role: chat.RoleUser, Content: "q1"},
		{Role: chat.RoleAssistant, Content: "sorry", Failed: true},
		{Role: chat.RoleUser, Content: "q2"},
		{Role: chat.RoleAssistant, Content: ""},
	}}

	sc := ContextFor(session)
	assert.Equal(t, "s", sc.SessionID)
	require.Len(t, sc.History, 2)
	assert.Equal(t, "q2", sc.History[1].Content)
}

func TestOpenAIBuildRequest(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:       "key",
		Models:       map[chat.Tier]string{chat.TierFlash: "gpt-mini"},
		SystemPrompt: "sys",
	}, zap.NewNop())

	req, err := p.buildRequest(SessionContext{History: []chat.Message{
		{Role: chat.RoleUser, Content: "q1"},
		{Role: chat.RoleAssistant, Content: "a1"},
	}}, "q2", chat.TierFlash)
	require.NoError(t, err)

	assert.Equal(t, "gpt-mini", req.Model)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[2].Role)
	assert.Equal(t, "q2", req.Messages[3].Content)

	_, err = p.buildRequest(SessionContext{}, "q", chat.TierPro)
	assert.Error(t, err)
}

func TestArkHistoryMessages(t *testing.T) {
	history := buildHistoryMessages([]chat.Message{
		{Role: chat.RoleUser, Content: "q1"},
		{Role: chat.RoleAssistant, Content: "a1"},
	})
	require.Len(t, history, 2)
	assert.Equal(t, schema.User, history[0].Role)
	assert.Equal(t, schema.Assistant, history[1].Role)
	assert.Nil(t, buildHistoryMessages(nil))
}

func TestMessageTextSkipsEmptyChunks(t *testing.T) {
	src := schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage("Hi", nil),
		schema.AssistantMessage("", nil),
		schema.AssistantMessage(" there", nil),
	})

	chunks, err := drain(t, schema.StreamReaderWithConvert(src, messageText))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there"}, chunks)
}

func TestBuildSystemPrompt(t *testing.T) {
	p, ok := persona.Resolve(persona.NewMemoryStore(persona.Seed()), persona.DefaultID)
	require.True(t, ok)

	prompt := BuildSystemPrompt(p)
	assert.True(t, strings.HasPrefix(prompt, `You are "Syntra"`))
	assert.Contains(t, prompt, "1. ")
	assert.Contains(t, prompt, "SQL injection")
}

func TestNewProviderRequiresCredentials(t *testing.T) {
	_, err := NewProvider(context.Background(), config.AIConfig{Provider: config.ProviderGemini}, persona.NewMemoryStore(persona.Seed()), zap.NewNop())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func(context.Context, SessionContext, string, chat.Tier) (*schema.StreamReader[string], error) {
		return schema.StreamReaderFromArray([]string{"ok"}), nil
	})
	sr, err := p.OpenStream(context.Background(), SessionContext{}, "x", chat.TierFlash)
	require.NoError(t, err)
	chunks, err := drain(t, sr)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, chunks)
}
